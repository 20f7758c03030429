package tezos

// BallotVote is a single delegate's vote on the active proposal,
// decoded from the votes/ballot_list sub-resource.
type BallotVote struct {
	Pkh    AccountId `json:"pkh"`
	Ballot string    `json:"ballot"`
}

// Proposal is one proposal hash together with the number of rolls that
// have endorsed it, decoded from votes/proposals.
type Proposal struct {
	ProtocolHash ProtocolId `json:"protocol_hash"`
	SupporterCount int      `json:"supporters"`
}

// BakerRoll pairs a delegate with its roll count, decoded from
// votes/listings.
type BakerRoll struct {
	Pkh   AccountId `json:"pkh"`
	Rolls int       `json:"rolls"`
}

// BakingRight is one entry of the baking_rights sub-resource.
type BakingRight struct {
	Level         int       `json:"level"`
	Delegate      AccountId `json:"delegate"`
	Priority      int       `json:"priority"`
	EstimatedTime Option[string] `json:"estimated_time"`
}

// EndorsingRight is one entry of the endorsing_rights sub-resource.
type EndorsingRight struct {
	Level         int       `json:"level"`
	Delegate      AccountId `json:"delegate"`
	Slots         []int     `json:"slots"`
	EstimatedTime Option[string] `json:"estimated_time"`
}
