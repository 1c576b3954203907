package core

import (
	"encoding/json"

	"github.com/daodao/core/pkg/types"
)

// ModuleAdmin selects who may migrate an instantiated module
type ModuleAdmin struct {
	Address    *AdminAddress `json:"address,omitempty"`
	CoreModule *struct{}     `json:"core_module,omitempty"`
}

// AdminAddress is a fixed admin
type AdminAddress struct {
	Addr types.Address `json:"addr"`
}

// ModuleInstantiateInfo describes a module the DAO instantiates as itself
type ModuleInstantiateInfo struct {
	CodeID string          `json:"code_id"`
	Msg    json.RawMessage `json:"msg"`
	Admin  *ModuleAdmin    `json:"admin,omitempty"`
	Funds  []types.Coin    `json:"funds,omitempty"`
	Label  string          `json:"label"`
}

func (m ModuleInstantiateInfo) wasmMsg(dao types.Address) types.CosmosMsg {
	var admin *types.Address
	switch {
	case m.Admin == nil:
	case m.Admin.Address != nil:
		a := m.Admin.Address.Addr
		admin = &a
	case m.Admin.CoreModule != nil:
		admin = &dao
	}
	funds := m.Funds
	if funds == nil {
		funds = []types.Coin{}
	}
	return types.CosmosMsg{Wasm: &types.WasmMsg{Instantiate: &types.WasmInstantiate{
		Admin:  admin,
		CodeID: m.CodeID,
		Msg:    m.Msg,
		Funds:  funds,
		Label:  m.Label,
	}}}
}

// Config is the DAO's descriptive configuration
type Config struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url,omitempty"`
	DaoURI      *string `json:"dao_uri,omitempty"`
}

// InstantiateMsg creates a DAO together with its modules
type InstantiateMsg struct {
	Admin                          *types.Address          `json:"admin,omitempty"`
	Name                           string                  `json:"name"`
	Description                    string                  `json:"description"`
	ImageURL                       *string                 `json:"image_url,omitempty"`
	DaoURI                         *string                 `json:"dao_uri,omitempty"`
	VotingModuleInstantiateInfo    ModuleInstantiateInfo   `json:"voting_module_instantiate_info"`
	ProposalModulesInstantiateInfo []ModuleInstantiateInfo `json:"proposal_modules_instantiate_info"`
}

// ExecuteMsg is the DAO core's execute interface
type ExecuteMsg struct {
	ExecuteProposalHook   *ExecuteProposalHook   `json:"execute_proposal_hook,omitempty"`
	ExecuteAdminMsgs      *ExecuteAdminMsgs      `json:"execute_admin_msgs,omitempty"`
	Pause                 *Pause                 `json:"pause,omitempty"`
	UpdateConfig          *UpdateConfig          `json:"update_config,omitempty"`
	UpdateVotingModule    *UpdateVotingModule    `json:"update_voting_module,omitempty"`
	UpdateProposalModules *UpdateProposalModules `json:"update_proposal_modules,omitempty"`
}

// ExecuteProposalHook dispatches the messages of a passed proposal. Only
// enabled proposal modules may send it.
type ExecuteProposalHook struct {
	Msgs []types.CosmosMsg `json:"msgs"`
}

// ExecuteAdminMsgs dispatches messages on behalf of the admin
type ExecuteAdminMsgs struct {
	Msgs []types.CosmosMsg `json:"msgs"`
}

// Pause stops every execute path for a while
type Pause struct {
	Duration types.Duration `json:"duration"`
}

// UpdateConfig replaces the DAO's descriptive configuration
type UpdateConfig struct {
	Config Config `json:"config"`
}

// UpdateVotingModule instantiates a replacement voting module
type UpdateVotingModule struct {
	Module ModuleInstantiateInfo `json:"module"`
}

// UpdateProposalModules adds and disables proposal modules
type UpdateProposalModules struct {
	ToAdd     []ModuleInstantiateInfo `json:"to_add"`
	ToDisable []types.Address         `json:"to_disable"`
}

// NewExecuteProposalHookMsg builds the message a proposal module sends to
// the DAO to execute a passed proposal
func NewExecuteProposalHookMsg(dao types.Address, msgs []types.CosmosMsg) (types.CosmosMsg, error) {
	if msgs == nil {
		msgs = []types.CosmosMsg{}
	}
	return types.NewWasmExecute(dao, ExecuteMsg{ExecuteProposalHook: &ExecuteProposalHook{Msgs: msgs}})
}

// QueryMsg is the DAO core's query interface. Voting power queries are
// forwarded to the voting module.
type QueryMsg struct {
	types.VotingQuery
	Admin                 *struct{}         `json:"admin,omitempty"`
	Config                *struct{}         `json:"config,omitempty"`
	VotingModule          *struct{}         `json:"voting_module,omitempty"`
	ProposalModules       *ListModulesQuery `json:"proposal_modules,omitempty"`
	ActiveProposalModules *ListModulesQuery `json:"active_proposal_modules,omitempty"`
	ProposalModuleCount   *struct{}         `json:"proposal_module_count,omitempty"`
	PauseInfo             *struct{}         `json:"pause_info,omitempty"`
	DumpState             *struct{}         `json:"dump_state,omitempty"`
}

// ListModulesQuery pages through proposal modules by address
type ListModulesQuery struct {
	StartAfter *types.Address `json:"start_after,omitempty"`
	Limit      *uint32        `json:"limit,omitempty"`
}

// ModuleStatus is whether a proposal module may execute proposals
type ModuleStatus string

const (
	ModuleEnabled  ModuleStatus = "enabled"
	ModuleDisabled ModuleStatus = "disabled"
)

// ProposalModule is a registered proposal module
type ProposalModule struct {
	Address types.Address `json:"address"`
	Prefix  string        `json:"prefix"`
	Status  ModuleStatus  `json:"status"`
}

// ProposalModuleCountResponse counts registered modules
type ProposalModuleCountResponse struct {
	ActiveProposalModuleCount uint64 `json:"active_proposal_module_count"`
	TotalProposalModuleCount  uint64 `json:"total_proposal_module_count"`
}

// PauseInfoResponse reports whether the DAO is paused
type PauseInfoResponse struct {
	Paused *types.Expiration `json:"paused,omitempty"`
}

// DumpStateResponse is the DAO's full configuration
type DumpStateResponse struct {
	Admin             types.Address         `json:"admin"`
	Config            Config                `json:"config"`
	Version           types.ContractVersion `json:"version"`
	VotingModule      types.Address         `json:"voting_module"`
	ProposalModules   []ProposalModule      `json:"proposal_modules"`
	ActiveModuleCount uint64                `json:"active_proposal_module_count"`
	TotalModuleCount  uint64                `json:"total_proposal_module_count"`
	Pause             PauseInfoResponse     `json:"pause_info"`
}
