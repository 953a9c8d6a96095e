// Package ticks defines the per-tick row schema for recorded match replays
// and the normalization of loosely typed parser records into it.
//
// A Record is what the demo parser hands over: one key-value sample per tick
// per player, with no type or presence guarantees. A Row is the corresponding
// fully typed demo_ticks row. Normalize maps one to the other and never
// fails; see normalize.go for the defaulting policy.
package ticks

// Table is the destination table every tick row is inserted into.
const Table = "demo_ticks"

// Columns is the destination column order of demo_ticks. Row.Values and the
// storage insert statement both follow this order exactly.
var Columns = []string{
	"tick", "round_num", "seconds", "clock_time", "t_score", "ct_score",
	"steam_id", "name", "team", "side", "is_alive", "hp", "armor",
	"x", "y", "z", "view_x", "view_y", "active_weapon",
	"demo_filename", "map_name",
}

// Record is one raw per-tick, per-player sample: an opaque key-value mapping
// with heterogeneous, possibly missing fields. Values may be native Go
// scalars or json.Number (the export reader decodes numbers that way so
// 64-bit Steam IDs keep full precision).
type Record map[string]any

// Row is one fully typed, fully populated demo_ticks row.
type Row struct {
	Tick         int
	RoundNum     int
	Seconds      float64
	ClockTime    string
	TScore       int
	CTScore      int
	SteamID      int64
	Name         string
	Team         string
	Side         string
	IsAlive      bool
	HP           int
	Armor        int
	X            float64
	Y            float64
	Z            float64
	ViewX        float64
	ViewY        float64
	ActiveWeapon string
	DemoFilename string
	MapName      string
}

// Values returns the row's fields as positional insert arguments aligned
// with Columns.
func (r Row) Values() []any {
	return []any{
		r.Tick, r.RoundNum, r.Seconds, r.ClockTime, r.TScore, r.CTScore,
		r.SteamID, r.Name, r.Team, r.Side, r.IsAlive, r.HP, r.Armor,
		r.X, r.Y, r.Z, r.ViewX, r.ViewY, r.ActiveWeapon,
		r.DemoFilename, r.MapName,
	}
}
