package domain

// CooldownReason labels why the controller is waiting. Both reasons use the
// same wait and the same duration.
type CooldownReason string

const (
	CooldownRateLimited CooldownReason = "rate_limited"
	CooldownInterBatch  CooldownReason = "inter_batch"
)

func (r CooldownReason) String() string { return string(r) }

// UnitStage is the step of the single-address workflow that failed or progressed.
type UnitStage string

const (
	StageGenerate UnitStage = "generate"
	StageReserve  UnitStage = "reserve"
)

func (s UnitStage) String() string { return string(s) }
