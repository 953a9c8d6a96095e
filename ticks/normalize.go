package ticks

import "github.com/spf13/cast"

// Normalize converts one raw record into a fully populated Row. It is total:
// a field that is absent, null, or not coercible to its declared type is
// replaced by that field's default instead of failing the record. Defaults
// are zero values (0, 0.0, "") except is_alive (true) and hp (100), which
// assume a live, full-health player. demo_filename and map_name come from
// the arguments, never from the record.
//
// Each field is looked up under its host key first (camelCase, as supplied
// by the embedding pipeline) and then under its column name (snake_case, as
// written by the demo parser's JSON export).
func Normalize(rec Record, demoFilename, mapName string) Row {
	return NormalizeObserved(rec, demoFilename, mapName, nil)
}

// NormalizeObserved is Normalize with visibility into the defaulting policy:
// onDefault, when non-nil, is called with the destination column name each
// time a field falls back to its default. The returned Row is identical to
// what Normalize produces; observation never changes the outcome.
//
// The calls below are the complete field table: destination column, default,
// then the source keys tried in order.
func NormalizeObserved(rec Record, demoFilename, mapName string, onDefault func(field string)) Row {
	g := getter{rec: rec, onDefault: onDefault}
	return Row{
		Tick:         g.intVal("tick", 0, "tick"),
		RoundNum:     g.intVal("round_num", 0, "roundNum", "round_num"),
		Seconds:      g.floatVal("seconds", 0, "seconds"),
		ClockTime:    g.strVal("clock_time", "", "clockTime", "clock_time"),
		TScore:       g.intVal("t_score", 0, "tScore", "t_score"),
		CTScore:      g.intVal("ct_score", 0, "ctScore", "ct_score"),
		SteamID:      g.int64Val("steam_id", 0, "steamID", "steam_id"),
		Name:         g.strVal("name", "", "name"),
		Team:         g.strVal("team", "", "team"),
		Side:         g.strVal("side", "", "side"),
		IsAlive:      g.boolVal("is_alive", true, "isAlive", "is_alive"),
		HP:           g.intVal("hp", 100, "hp"),
		Armor:        g.intVal("armor", 0, "armor"),
		X:            g.floatVal("x", 0, "x"),
		Y:            g.floatVal("y", 0, "y"),
		Z:            g.floatVal("z", 0, "z"),
		ViewX:        g.floatVal("view_x", 0, "viewX", "view_x"),
		ViewY:        g.floatVal("view_y", 0, "viewY", "view_y"),
		ActiveWeapon: g.strVal("active_weapon", "", "activeWeapon", "active_weapon"),
		DemoFilename: demoFilename,
		MapName:      mapName,
	}
}

// getter resolves record fields with per-kind coercion and default fallback.
type getter struct {
	rec       Record
	onDefault func(field string)
}

// value returns the first present key's value. Presence is decided per key
// in order, so a camelCase key shadows its snake_case twin even when its
// value turns out uncoercible.
func (g getter) value(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := g.rec[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func (g getter) defaulted(column string) {
	if g.onDefault != nil {
		g.onDefault(column)
	}
}

func (g getter) intVal(column string, def int, keys ...string) int {
	if v, ok := g.value(keys); ok && v != nil {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	g.defaulted(column)
	return def
}

func (g getter) int64Val(column string, def int64, keys ...string) int64 {
	if v, ok := g.value(keys); ok && v != nil {
		if n, err := cast.ToInt64E(v); err == nil {
			return n
		}
	}
	g.defaulted(column)
	return def
}

func (g getter) floatVal(column string, def float64, keys ...string) float64 {
	if v, ok := g.value(keys); ok && v != nil {
		if f, err := cast.ToFloat64E(v); err == nil {
			return f
		}
	}
	g.defaulted(column)
	return def
}

func (g getter) strVal(column string, def string, keys ...string) string {
	if v, ok := g.value(keys); ok && v != nil {
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
	}
	g.defaulted(column)
	return def
}

func (g getter) boolVal(column string, def bool, keys ...string) bool {
	if v, ok := g.value(keys); ok && v != nil {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	g.defaulted(column)
	return def
}
