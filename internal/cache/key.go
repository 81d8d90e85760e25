package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"
)

// Namespace separates cached entity kinds.
type Namespace string

const (
	NamespaceLessons Namespace = "lessons"
	NamespaceCourses Namespace = "courses"
)

const (
	// Schedules change weekly, catalogs change by semester.
	LessonsTTL = 3 * 24 * time.Hour
	CoursesTTL = 90 * 24 * time.Hour
)

// TTL returns the expiry applied to entries of the namespace.
func (n Namespace) TTL() time.Duration {
	if n == NamespaceCourses {
		return CoursesTTL
	}
	return LessonsTTL
}

// Namespaces lists every namespace a source may have entries in.
func Namespaces() []Namespace {
	return []Namespace{NamespaceLessons, NamespaceCourses}
}

// Key identifies one cached query result.
type Key struct {
	Namespace Namespace
	SourceID  string
	Hash      string
}

// NewKey derives the key for a query. The hash only depends on the set of
// key/value pairs, never on map iteration order.
func NewKey(ns Namespace, sourceID string, query map[string]string) Key {
	return Key{Namespace: ns, SourceID: sourceID, Hash: QueryHash(query)}
}

func (k Key) String() string {
	return string(k.Namespace) + ":" + k.SourceID + ":" + k.Hash
}

// Prefix is the common prefix of every key of a source in a namespace.
func Prefix(ns Namespace, sourceID string) string {
	return string(ns) + ":" + sourceID + ":"
}

// QueryHash is the hex SHA-256 of the query pairs sorted by key and encoded
// as a JSON array of [key, value] arrays.
func QueryHash(query map[string]string) string {
	pairs := make([][2]string, 0, len(query))
	for k, v := range query {
		pairs = append(pairs, [2]string{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })

	// encoding a slice of string arrays cannot fail
	b, _ := json.Marshal(pairs)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
