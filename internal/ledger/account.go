package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/goodnatureofminers/icwallet/internal/accountid"
	"github.com/goodnatureofminers/icwallet/internal/agent"
	"github.com/goodnatureofminers/icwallet/internal/identity"
)

// Account is an owner plus optional subaccount; nil selects the default subaccount.
type Account struct {
	Owner      identity.Principal
	Subaccount *accountid.Subaccount
}

// ID derives the legacy account identifier of a.
func (a Account) ID() accountid.ID {
	return accountid.FromPrincipal(a.Owner, a.Subaccount)
}

type wireAccount struct {
	Owner      identity.Principal `json:"owner"`
	Subaccount *agent.Blob        `json:"subaccount"`
}

func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireAccount{Owner: a.Owner, Subaccount: subaccountBlob(a.Subaccount)})
}

func (a *Account) UnmarshalJSON(data []byte) error {
	var w wireAccount
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.Owner = w.Owner
	a.Subaccount = nil
	if w.Subaccount != nil {
		sub, err := accountid.SubaccountFromBytes(*w.Subaccount)
		if err != nil {
			return fmt.Errorf("account subaccount: %w", err)
		}
		a.Subaccount = &sub
	}
	return nil
}

func subaccountBlob(s *accountid.Subaccount) *agent.Blob {
	if s == nil {
		return nil
	}
	b := agent.Blob(s[:])
	return &b
}
