package types

// Wire types of the voting power interface every voting module implements and
// every proposal, delegation and rewards contract consumes.

// VotingPowerAtHeightQuery asks for an address's power at a height
type VotingPowerAtHeightQuery struct {
	Address Address `json:"address"`
	// Height defaults to the current block
	Height *uint64 `json:"height,omitempty"`
}

// TotalPowerAtHeightQuery asks for the total power at a height
type TotalPowerAtHeightQuery struct {
	Height *uint64 `json:"height,omitempty"`
}

// VotingPowerAtHeightResponse is returned for VotingPowerAtHeightQuery
type VotingPowerAtHeightResponse struct {
	Power  Uint128 `json:"power"`
	Height uint64  `json:"height"`
}

// TotalPowerAtHeightResponse is returned for TotalPowerAtHeightQuery
type TotalPowerAtHeightResponse struct {
	Power  Uint128 `json:"power"`
	Height uint64  `json:"height"`
}

// VotingQuery is the query union accepted by voting modules and by the DAO
// core, which forwards it to its voting module
type VotingQuery struct {
	VotingPowerAtHeight *VotingPowerAtHeightQuery `json:"voting_power_at_height,omitempty"`
	TotalPowerAtHeight  *TotalPowerAtHeightQuery  `json:"total_power_at_height,omitempty"`
	Dao                 *struct{}                 `json:"dao,omitempty"`
	Info                *struct{}                 `json:"info,omitempty"`
}

// ContractVersion is the name and semver version a contract was stored with
type ContractVersion struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// InfoResponse is returned by every contract's info query
type InfoResponse struct {
	Info ContractVersion `json:"info"`
}

// HeightPtr is a helper for optional height fields
func HeightPtr(h uint64) *uint64 {
	return &h
}
