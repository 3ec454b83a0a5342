package model

import "github.com/google/uuid"

// CommandKind is a lifecycle command emitted for the dispatch layer.
// Keep these values stable; they are intended for CSV output.
type CommandKind string

const (
	CommandNone               CommandKind = "none"
	CommandClose              CommandKind = "close"
	CommandRenovate           CommandKind = "renovate"
	CommandChangeTechnology   CommandKind = "change_technology"
	CommandAddAsset           CommandKind = "add_asset"
	CommandUpdateStatus       CommandKind = "update_status"
	CommandUpdateDynamicCosts CommandKind = "update_dynamic_costs"
)

// Command records one decision about one asset in one year.
type Command struct {
	ID         uuid.UUID   `json:"id"`
	Year       int         `json:"year"`
	Kind       CommandKind `json:"kind"`
	AssetID    uuid.UUID   `json:"asset_id"`
	Technology Technology  `json:"technology,omitempty"` // target technology for switches and new assets
	FromStatus Status      `json:"from_status,omitempty"`
	ToStatus   Status      `json:"to_status,omitempty"`
	NPV        float64     `json:"npv,omitempty"`
	Cost       float64     `json:"cost,omitempty"` // equity spent, $
	Reason     string      `json:"reason,omitempty"`

	// EffectiveYear is when a technology change takes effect.
	EffectiveYear int `json:"effective_year,omitempty"`
}

func newCommand(year int, kind CommandKind, assetID uuid.UUID) Command {
	return Command{ID: uuid.New(), Year: year, Kind: kind, AssetID: assetID}
}

// NoAction is the command for an asset that is left as it is this year.
func NoAction(year int, assetID uuid.UUID, reason string) Command {
	c := newCommand(year, CommandNone, assetID)
	c.Reason = reason
	return c
}

func NewCommand(year int, kind CommandKind, assetID uuid.UUID) Command {
	return newCommand(year, kind, assetID)
}

// StatusChange is an update_status command.
func StatusChange(year int, a *Asset, from, to Status, reason string) Command {
	c := newCommand(year, CommandUpdateStatus, a.ID)
	c.FromStatus = from
	c.ToStatus = to
	c.Technology = a.Technology.Kind
	c.Reason = reason
	return c
}

// Acts reports whether the command changes anything.
func (c Command) Acts() bool { return c.Kind != CommandNone }
