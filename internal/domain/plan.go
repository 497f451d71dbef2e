package domain

type Tier string

const (
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

var Tiers = []Tier{TierBasic, TierStandard, TierPremium}

func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium:
		return true
	}
	return false
}

// PlanOffering is one priced tier of a service. Price is in whole currency units.
type PlanOffering struct {
	ServiceID    string   `json:"serviceId"`
	Tier         Tier     `json:"tier"`
	DisplayLabel string   `json:"label"`
	Price        int64    `json:"price"`
	Features     []string `json:"features"`
}

type Service struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	ShortTitle  string         `json:"shortTitle"`
	Description string         `json:"description"`
	Plans       []PlanOffering `json:"plans"`
}
