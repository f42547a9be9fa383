package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JakeTRogers/geoBuddy/logger"
)

// ErrMalformedID is returned by Decode for ids that do not follow the
// "<level>_<rawId>" format or carry an unknown level.
var ErrMalformedID = errors.New("malformed node id")

const separator = "_"

// Kind identifies which level of the hierarchy a node belongs to.
type Kind int

const (
	// KindNone is the zero value, used for an empty selection.
	KindNone Kind = iota
	Continent
	Country
	City
)

// String returns the display name of the kind. KindNone renders as "".
func (k Kind) String() string {
	switch k {
	case Continent:
		return "Continent"
	case Country:
		return "Country"
	case City:
		return "City"
	default:
		return ""
	}
}

// Level returns the depth marker encoded into node ids (1 for continents).
func (k Kind) Level() int {
	return int(k)
}

// Child returns the kind one level down, or KindNone below cities.
func (k Kind) Child() Kind {
	if k == KindNone || k == City {
		return KindNone
	}
	return k + 1
}

// KindForLevel maps a depth marker back to its kind.
func KindForLevel(level int) (Kind, bool) {
	if level < int(Continent) || level > int(City) {
		return KindNone, false
	}
	return Kind(level), true
}

// Encode builds the node id for a backend identifier at the given level.
func Encode(level int, rawID string) string {
	return strconv.Itoa(level) + separator + rawID
}

// Decode splits a node id into its kind and backend identifier.
func Decode(id string) (Kind, string, error) {
	levelPart, rawID, ok := strings.Cut(id, separator)
	if !ok || len(levelPart) != 1 || rawID == "" {
		return KindNone, "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	level, err := strconv.Atoi(levelPart)
	if err != nil {
		return KindNone, "", fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	kind, ok := KindForLevel(level)
	if !ok {
		return KindNone, "", fmt.Errorf("%w: %q: unknown level %d", ErrMalformedID, id, level)
	}
	return kind, rawID, nil
}

// LevelOf returns the depth marker of id. Malformed ids are logged and
// reported as level 0, which sorts above every real level.
func LevelOf(id string) int {
	kind, _, err := Decode(id)
	if err != nil {
		l := logger.GetLogger()
		l.Warn().Err(err).Str("id", id).Msg("treating node id as level 0")
		return 0
	}
	return kind.Level()
}
