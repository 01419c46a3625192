package metrics

import "strings"

// Static lookup tables for tracked cooldowns, damage-over-time spells,
// encounter phases, and rotation rules. Kept as plain data so they can be
// inspected, tested, and extended from overlay files at startup.

// TableVersion identifies the revision of the built-in tables.
const TableVersion = "v1"

// CooldownSpec describes one tracked cooldown ability for a class.
// WindowSec is the throughput window opened by an activation; zero means
// the ability has no meaningful damage window.
type CooldownSpec struct {
	AbilityID   int    `yaml:"ability_id"`
	Name        string `yaml:"name"`
	CooldownSec int    `yaml:"cooldown_sec"`
	WindowSec   int    `yaml:"window_sec"`
}

// DotSpec describes one tracked damage-over-time spell for a spec.
type DotSpec struct {
	AbilityID      int    `yaml:"ability_id"`
	Name           string `yaml:"name"`
	DurationMs     int64  `yaml:"duration_ms"`
	TickIntervalMs int64  `yaml:"tick_interval_ms"`
}

// PhaseDef is a fractional phase boundary definition. Phases for an
// encounter must be contiguous and span [0, 1].
type PhaseDef struct {
	Name       string  `yaml:"name"`
	PctStart   float64 `yaml:"pct_start"`
	PctEnd     float64 `yaml:"pct_end"`
	IsDowntime bool    `yaml:"is_downtime"`
}

// RuleType selects how a rotation rule is evaluated.
type RuleType string

const (
	RuleCastCount RuleType = "castCount"
	RuleUptime    RuleType = "uptime"
	RuleCdUsage   RuleType = "cdUsage"
)

// RotationRule is one spec-specific play expectation.
type RotationRule struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Type        RuleType `yaml:"type"`
	AbilityID   int      `yaml:"ability_id"`
	BuffID      int      `yaml:"buff_id"`
	CooldownSec int      `yaml:"cooldown_sec"`
	Threshold   float64  `yaml:"threshold"`
}

var classCooldowns = map[string][]CooldownSpec{
	"warrior": {
		{AbilityID: 12328, Name: "Death Wish", CooldownSec: 180, WindowSec: 30},
		{AbilityID: 1719, Name: "Recklessness", CooldownSec: 1800, WindowSec: 15},
		{AbilityID: 2687, Name: "Bloodrage", CooldownSec: 60},
	},
	"rogue": {
		{AbilityID: 13750, Name: "Adrenaline Rush", CooldownSec: 300, WindowSec: 15},
		{AbilityID: 13877, Name: "Blade Flurry", CooldownSec: 120, WindowSec: 15},
	},
	"mage": {
		{AbilityID: 12042, Name: "Arcane Power", CooldownSec: 180, WindowSec: 15},
		{AbilityID: 11129, Name: "Combustion", CooldownSec: 180, WindowSec: 20},
		{AbilityID: 12051, Name: "Evocation", CooldownSec: 480},
	},
	"warlock": {
		{AbilityID: 17877, Name: "Shadowburn", CooldownSec: 15},
		{AbilityID: 18288, Name: "Amplify Curse", CooldownSec: 180, WindowSec: 30},
	},
	"priest": {
		{AbilityID: 10060, Name: "Power Infusion", CooldownSec: 180, WindowSec: 15},
		{AbilityID: 14751, Name: "Inner Focus", CooldownSec: 180},
	},
	"hunter": {
		{AbilityID: 3045, Name: "Rapid Fire", CooldownSec: 300, WindowSec: 15},
		{AbilityID: 19574, Name: "Bestial Wrath", CooldownSec: 120, WindowSec: 18},
	},
}

var specDots = map[string][]DotSpec{
	"warlock/affliction": {
		{AbilityID: 11672, Name: "Corruption", DurationMs: 18000, TickIntervalMs: 3000},
		{AbilityID: 11713, Name: "Curse of Agony", DurationMs: 24000, TickIntervalMs: 2000},
		{AbilityID: 11675, Name: "Siphon Life", DurationMs: 30000, TickIntervalMs: 3000},
	},
	"warlock/destruction": {
		{AbilityID: 25309, Name: "Immolate", DurationMs: 15000, TickIntervalMs: 3000},
	},
	"priest/shadow": {
		{AbilityID: 10894, Name: "Shadow Word: Pain", DurationMs: 18000, TickIntervalMs: 3000},
		{AbilityID: 18807, Name: "Mind Flay", DurationMs: 3000, TickIntervalMs: 1000},
	},
	"druid/balance": {
		{AbilityID: 9835, Name: "Moonfire", DurationMs: 12000, TickIntervalMs: 3000},
		{AbilityID: 9908, Name: "Insect Swarm", DurationMs: 12000, TickIntervalMs: 2000},
	},
}

var encounterPhases = map[string][]PhaseDef{
	"ragnaros": {
		{Name: "Ragnaros I", PctStart: 0, PctEnd: 0.45},
		{Name: "Sons of Flame", PctStart: 0.45, PctEnd: 0.55, IsDowntime: true},
		{Name: "Ragnaros II", PctStart: 0.55, PctEnd: 1},
	},
	"onyxia": {
		{Name: "Ground I", PctStart: 0, PctEnd: 0.3},
		{Name: "Air", PctStart: 0.3, PctEnd: 0.65, IsDowntime: true},
		{Name: "Ground II", PctStart: 0.65, PctEnd: 1},
	},
	"nefarian": {
		{Name: "Drakonids", PctStart: 0, PctEnd: 0.25, IsDowntime: true},
		{Name: "Nefarian", PctStart: 0.25, PctEnd: 1},
	},
	"c'thun": {
		{Name: "Eye", PctStart: 0, PctEnd: 0.4},
		{Name: "Body", PctStart: 0.4, PctEnd: 1},
	},
}

var specRotations = map[string][]RotationRule{
	"warrior/fury": {
		{Name: "bloodthirst_cpm", Description: "Bloodthirst cast on cooldown", Type: RuleCastCount, AbilityID: 23881, Threshold: 6},
		{Name: "death_wish_usage", Description: "Death Wish used near its theoretical maximum", Type: RuleCdUsage, AbilityID: 12328, CooldownSec: 180, Threshold: 80},
		{Name: "flurry_uptime", Description: "Flurry kept active", Type: RuleUptime, BuffID: 12970, Threshold: 70},
	},
	"rogue/combat": {
		{Name: "sinister_strike_cpm", Description: "Sinister Strike as filler", Type: RuleCastCount, AbilityID: 11294, Threshold: 10},
		{Name: "slice_and_dice_uptime", Description: "Slice and Dice kept active", Type: RuleUptime, BuffID: 6774, Threshold: 85},
		{Name: "blade_flurry_usage", Description: "Blade Flurry used near its theoretical maximum", Type: RuleCdUsage, AbilityID: 13877, CooldownSec: 120, Threshold: 75},
	},
	"warlock/affliction": {
		{Name: "shadow_bolt_cpm", Description: "Shadow Bolt as filler", Type: RuleCastCount, AbilityID: 25307, Threshold: 12},
		{Name: "curse_uptime", Description: "A curse kept on the boss", Type: RuleUptime, BuffID: 11713, Threshold: 90},
	},
	"mage/fire": {
		{Name: "fireball_cpm", Description: "Fireball as filler", Type: RuleCastCount, AbilityID: 25306, Threshold: 14},
		{Name: "combustion_usage", Description: "Combustion used near its theoretical maximum", Type: RuleCdUsage, AbilityID: 11129, CooldownSec: 180, Threshold: 80},
	},
}

var resourceNames = map[int]string{
	0: "mana",
	1: "rage",
	2: "focus",
	3: "energy",
	4: "combo points",
}

// CooldownsForClass returns the tracked cooldown table for a class, or nil
// when the class has none.
func CooldownsForClass(class string) []CooldownSpec {
	return classCooldowns[normalizeKey(class)]
}

// DotsForSpec returns the tracked DoT table for a spec key such as
// "warlock/affliction", or nil when the spec has none.
func DotsForSpec(spec string) []DotSpec {
	return specDots[normalizeKey(spec)]
}

// PhasesForEncounter returns the phase table for an encounter, or nil when
// the encounter has no explicit table.
func PhasesForEncounter(encounter string) []PhaseDef {
	return encounterPhases[normalizeKey(encounter)]
}

// RotationRulesForSpec returns the ordered rule list for a spec key, or nil
// when the spec has no rule set.
func RotationRulesForSpec(spec string) []RotationRule {
	return specRotations[normalizeKey(spec)]
}

// ResourceName translates a resource-type code; ok is false for codes the
// engine does not recognize.
func ResourceName(code int) (string, bool) {
	name, ok := resourceNames[code]
	return name, ok
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
