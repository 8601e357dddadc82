package session

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DefaultPrefix is the namespace used by the search process.
const DefaultPrefix = "mcts:"

var (
	turnRe       = regexp.MustCompile(`:(\d+):(?:final|growth_|initial|patch_|iteration:)`)
	growthTreeRe = regexp.MustCompile(`:growth_(\d+):tree$`)
	patchRe      = regexp.MustCompile(`:patch_(\d+)$`)
	legacyRe     = regexp.MustCompile(`:(\d+):iteration:(\d+)$`)
)

// Keys builds and parses the storage keys of a session.
//
// Turn numbers are zero-padded to three digits and iteration numbers to five.
type Keys struct {
	prefix string
}

// NewKeys returns a key builder for prefix. An empty prefix means DefaultPrefix.
func NewKeys(prefix string) Keys {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

func (k Keys) session(sessionID string) string {
	return k.prefix + sessionID
}

func (k Keys) turn(sessionID string, turn int) string {
	return fmt.Sprintf("%s:%03d", k.session(sessionID), turn)
}

// Final is the key of the final tree of a turn.
func (k Keys) Final(sessionID string, turn int) string {
	return k.turn(sessionID, turn) + ":final"
}

// GrowthTree is the key of stored growth snapshot n.
func (k Keys) GrowthTree(sessionID string, turn, n int) string {
	return fmt.Sprintf("%s:growth_%d:tree", k.turn(sessionID, turn), n)
}

// Initial is the key of the tree a turn's patches apply to.
func (k Keys) Initial(sessionID string, turn int) string {
	return k.turn(sessionID, turn) + ":initial"
}

// Patch is the key of patch n of a turn.
func (k Keys) Patch(sessionID string, turn, n int) string {
	return fmt.Sprintf("%s:patch_%d", k.turn(sessionID, turn), n)
}

// Stage is the key of one stage of an iteration.
func (k Keys) Stage(sessionID string, turn, iteration int, stage string) string {
	return fmt.Sprintf("%s:growth_%05d:%s", k.turn(sessionID, turn), iteration, stage)
}

// LegacyIteration is the key of an iteration stored as a single document.
func (k Keys) LegacyIteration(sessionID string, turn, iteration int) string {
	return fmt.Sprintf("%s:iteration:%05d", k.turn(sessionID, turn), iteration)
}

// SessionPattern matches every key of a session.
func (k Keys) SessionPattern(sessionID string) string {
	return k.prefix + escapeGlob(sessionID) + ":*"
}

// FinalPattern matches the final keys of every turn.
func (k Keys) FinalPattern(sessionID string) string {
	return k.prefix + escapeGlob(sessionID) + ":*:final"
}

// GrowthPattern matches every growth-related key of every turn.
func (k Keys) GrowthPattern(sessionID string) string {
	return k.prefix + escapeGlob(sessionID) + ":*:growth_*"
}

// GrowthTreePattern matches the stored snapshots of a turn.
func (k Keys) GrowthTreePattern(sessionID string, turn int) string {
	return fmt.Sprintf("%s%s:%03d:growth_*:tree", k.prefix, escapeGlob(sessionID), turn)
}

// PatchPattern matches the patches of a turn.
func (k Keys) PatchPattern(sessionID string, turn int) string {
	return fmt.Sprintf("%s%s:%03d:patch_*", k.prefix, escapeGlob(sessionID), turn)
}

// LegacyPattern matches legacy iteration keys of every turn.
func (k Keys) LegacyPattern(sessionID string) string {
	return k.prefix + escapeGlob(sessionID) + ":*:iteration:*"
}

// TurnOf extracts the turn number from a session key.
func (k Keys) TurnOf(key string) (int, bool) {
	return submatchInt(turnRe, key, 1)
}

// GrowthNumberOf extracts n from a GrowthTree key.
func (k Keys) GrowthNumberOf(key string) (int, bool) {
	return submatchInt(growthTreeRe, key, 1)
}

// PatchNumberOf extracts n from a Patch key.
func (k Keys) PatchNumberOf(key string) (int, bool) {
	return submatchInt(patchRe, key, 1)
}

// LegacyIterationOf extracts the turn and iteration numbers from a legacy key.
func (k Keys) LegacyIterationOf(key string) (turn, iteration int, ok bool) {
	m := legacyRe.FindStringSubmatch(key)
	if m == nil {
		return 0, 0, false
	}
	turn, err1 := strconv.Atoi(m[1])
	iteration, err2 := strconv.Atoi(m[2])
	return turn, iteration, err1 == nil && err2 == nil
}

func submatchInt(re *regexp.Regexp, key string, group int) (int, bool) {
	m := re.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[group])
	return n, err == nil
}

// numberedKey pairs a key with the number parsed from it.
type numberedKey struct {
	key string
	n   int
}

// sortNumbered parses every key with parse, drops the ones that do not
// match and orders the rest by number.
func sortNumbered(keys []string, parse func(string) (int, bool)) []numberedKey {
	out := make([]numberedKey, 0, len(keys))
	for _, key := range keys {
		if n, ok := parse(key); ok {
			out = append(out, numberedKey{key: key, n: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].n < out[j].n })
	return out
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes glob metacharacters in a literal key fragment.
func escapeGlob(s string) string {
	return globReplacer.Replace(s)
}
