package rules

import "encoding/json"

// Event is one machine-reported gameplay event as handed to the engine.
// The payload stays raw; each event type is parsed at most once per
// evaluation.
type Event struct {
    Type    string
    Payload json.RawMessage
}

// SquareRule pairs a square with its decoded rule definition.
type SquareRule struct {
    SquareID uint64
    Code     string
    Rule     Rule
}

// Gate carries the per-user stateful inputs a rule may depend on.  The
// caller reads them inside the same transaction that records completions
// so the gate check and the flag flip stay atomic.
type Gate struct {
    HadInfernal bool
}

// Match is one square satisfied by the event.  FirstItem tells the caller
// that recording this completion must also flip the user's gate flag.
type Match struct {
    SquareID  uint64
    Code      string
    FirstItem bool
}

// Payload shapes per event type.  All numeric identifiers compare as
// integers; a zero/absent field never matches.
type lootPayload struct {
    NPCID   int64   `json:"npcId"`
    ItemIDs []int64 `json:"itemIds"`
}
type raidPayload struct {
    Raid      string `json:"raid"`
    PartySize int64  `json:"partySize"`
}
type itemPayload struct {
    ItemID int64 `json:"itemId"`
}
type collogPayload struct {
    OwnedItemIDs []int64 `json:"ownedItemIds"`
}

// Evaluate tests one event against a team's full rule set and returns the
// squares it satisfies.  The full set is scanned without indexing; per-team
// event volume is small and correctness beats throughput here.  Unknown
// rule kinds, mismatched event types and malformed payloads all evaluate
// to "no match" rather than errors.  The engine performs no deduplication;
// the completion ledger's uniqueness constraint handles replays, which is
// what makes re-running an evaluation safe.
func Evaluate(ev Event, set []SquareRule, gate Gate) []Match {
    var matches []Match
    for _, sr := range set {
        m := false
        first := false
        switch r := sr.Rule.(type) {
        case LootItemFromNPC:
            m = matchLoot(ev, r)
        case RaidComplete:
            m = matchRaid(ev, r)
        case FirstItem:
            m = matchFirstItem(ev, r, gate)
            first = m
        case CollogItem:
            m = matchCollogItem(ev, r)
        case CollogAll:
            m = matchCollogAll(ev, r)
        }
        if m {
            matches = append(matches, Match{SquareID: sr.SquareID, Code: sr.Code, FirstItem: first})
        }
    }
    return matches
}

func matchLoot(ev Event, r LootItemFromNPC) bool {
    if ev.Type != EventLoot || r.NPCID == 0 || r.ItemID == 0 {
        return false
    }
    var p lootPayload
    if err := json.Unmarshal(ev.Payload, &p); err != nil {
        return false
    }
    if p.NPCID != r.NPCID {
        return false
    }
    for _, id := range p.ItemIDs {
        if id == r.ItemID {
            return true
        }
    }
    return false
}

func matchRaid(ev Event, r RaidComplete) bool {
    if ev.Type != EventRaidComplete || r.Raid == "" {
        return false
    }
    var p raidPayload
    if err := json.Unmarshal(ev.Payload, &p); err != nil {
        return false
    }
    return p.Raid == r.Raid && p.PartySize >= r.MinPartySize
}

func matchFirstItem(ev Event, r FirstItem, gate Gate) bool {
    if ev.Type != EventItemObtained || r.ItemID == 0 || gate.HadInfernal {
        return false
    }
    var p itemPayload
    if err := json.Unmarshal(ev.Payload, &p); err != nil {
        return false
    }
    return p.ItemID == r.ItemID
}

func matchCollogItem(ev Event, r CollogItem) bool {
    owned, ok := ownedSet(ev)
    if !ok {
        return false
    }
    for _, id := range r.ItemIDs {
        if owned[id] {
            return true
        }
    }
    return false
}

func matchCollogAll(ev Event, r CollogAll) bool {
    if len(r.ItemIDs) == 0 {
        return false
    }
    owned, ok := ownedSet(ev)
    if !ok {
        return false
    }
    for _, id := range r.ItemIDs {
        if !owned[id] {
            return false
        }
    }
    return true
}

func ownedSet(ev Event) (map[int64]bool, bool) {
    if ev.Type != EventCollogSnapshot {
        return nil, false
    }
    var p collogPayload
    if err := json.Unmarshal(ev.Payload, &p); err != nil {
        return nil, false
    }
    owned := make(map[int64]bool, len(p.OwnedItemIDs))
    for _, id := range p.OwnedItemIDs {
        owned[id] = true
    }
    return owned, true
}
