// Package rules implements the rule evaluation engine: declarative per-square
// rule definitions and the stateless evaluation of gameplay events against
// them.  Persistence and deduplication live elsewhere; evaluating the same
// event twice is harmless by construction.
package rules

import "encoding/json"

// Event type strings as reported by the game client plugin.
const (
    EventLoot           = "LOOT"
    EventRaidComplete   = "RAID_COMPLETE"
    EventItemObtained   = "ITEM_OBTAINED"
    EventCollogSnapshot = "COLLOG_SNAPSHOT"
)

// Rule kind tags as stored in squares.rule_json.
const (
    KindLootItemFromNPC = "LOOT_ITEM_FROM_NPC"
    KindRaidComplete    = "RAID_COMPLETE"
    KindFirstItem       = "FIRST_ITEM"
    KindCollogItem      = "COLLOG_ITEM"
    KindCollogAll       = "COLLOG_ALL"
)

// Rule is the closed set of rule definitions.  The unexported method keeps
// the set closed: adding a rule kind means adding a variant here plus an
// arm in Evaluate, which the compiler then checks.
type Rule interface {
    Kind() string
    rule()
}

// LootItemFromNPC matches a LOOT event whose NPC matches and whose item
// list contains the required item.
type LootItemFromNPC struct {
    NPCID  int64 `json:"npcId"`
    ItemID int64 `json:"itemId"`
}

// RaidComplete matches a RAID_COMPLETE event for the named raid with a
// party at least MinPartySize strong.
type RaidComplete struct {
    Raid         string `json:"raid"`
    MinPartySize int64  `json:"minPartySize"`
}

// FirstItem matches an ITEM_OBTAINED event for the item, gated by the
// user's one-time had_infernal flag: once the flag is set the rule never
// matches again for that user.
type FirstItem struct {
    ItemID int64 `json:"itemId"`
}

// CollogItem matches a COLLOG_SNAPSHOT event when any of the rule's items
// appears in the snapshot's owned set.
type CollogItem struct {
    ItemIDs []int64 `json:"itemIds"`
}

// CollogAll matches a COLLOG_SNAPSHOT event when the (non-empty) rule set
// is fully contained in the snapshot's owned set.
type CollogAll struct {
    ItemIDs []int64 `json:"itemIds"`
}

// Unknown preserves a rule whose kind tag this build does not recognize.
// It never matches anything; old deployments stay tolerant of squares
// seeded with newer rule kinds.
type Unknown struct {
    Tag string
}

func (LootItemFromNPC) Kind() string { return KindLootItemFromNPC }
func (RaidComplete) Kind() string    { return KindRaidComplete }
func (FirstItem) Kind() string       { return KindFirstItem }
func (CollogItem) Kind() string      { return KindCollogItem }
func (CollogAll) Kind() string       { return KindCollogAll }
func (u Unknown) Kind() string       { return u.Tag }

func (LootItemFromNPC) rule() {}
func (RaidComplete) rule()    {}
func (FirstItem) rule()       {}
func (CollogItem) rule()      {}
func (CollogAll) rule()       {}
func (Unknown) rule()         {}

// Decode parses a stored rule definition.  The JSON carries a `kind` tag
// next to the kind-specific fields, e.g.
//
//	{"kind":"LOOT_ITEM_FROM_NPC","npcId":2215,"itemId":11832}
//
// Unrecognized kinds decode to Unknown rather than failing, so evaluation
// of old events keeps working when new rule kinds are introduced.  An error
// is returned only for JSON that cannot be parsed at all.
func Decode(raw []byte) (Rule, error) {
    var tag struct {
        Kind string `json:"kind"`
    }
    if err := json.Unmarshal(raw, &tag); err != nil {
        return nil, err
    }
    switch tag.Kind {
    case KindLootItemFromNPC:
        var r LootItemFromNPC
        if err := json.Unmarshal(raw, &r); err != nil {
            return nil, err
        }
        return r, nil
    case KindRaidComplete:
        var r RaidComplete
        if err := json.Unmarshal(raw, &r); err != nil {
            return nil, err
        }
        return r, nil
    case KindFirstItem:
        var r FirstItem
        if err := json.Unmarshal(raw, &r); err != nil {
            return nil, err
        }
        return r, nil
    case KindCollogItem:
        var r CollogItem
        if err := json.Unmarshal(raw, &r); err != nil {
            return nil, err
        }
        return r, nil
    case KindCollogAll:
        var r CollogAll
        if err := json.Unmarshal(raw, &r); err != nil {
            return nil, err
        }
        return r, nil
    default:
        return Unknown{Tag: tag.Kind}, nil
    }
}

// Encode serializes a rule back to its stored JSON form, `kind` tag
// included.  Used by the board seeder.
func Encode(r Rule) ([]byte, error) {
    switch v := r.(type) {
    case LootItemFromNPC:
        return json.Marshal(struct {
            Kind string `json:"kind"`
            LootItemFromNPC
        }{KindLootItemFromNPC, v})
    case RaidComplete:
        return json.Marshal(struct {
            Kind string `json:"kind"`
            RaidComplete
        }{KindRaidComplete, v})
    case FirstItem:
        return json.Marshal(struct {
            Kind string `json:"kind"`
            FirstItem
        }{KindFirstItem, v})
    case CollogItem:
        return json.Marshal(struct {
            Kind string `json:"kind"`
            CollogItem
        }{KindCollogItem, v})
    case CollogAll:
        return json.Marshal(struct {
            Kind string `json:"kind"`
            CollogAll
        }{KindCollogAll, v})
    default:
        return json.Marshal(struct {
            Kind string `json:"kind"`
        }{r.Kind()})
    }
}
