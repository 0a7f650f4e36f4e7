package s3events

import (
	"sort"
	"strings"

	"github.com/ajitpratap0/nimbus/pkg/changelog"
)

// FileReference identifies one object-store object after deduplication
type FileReference struct {
	Bucket string
	Key    string
}

// eventPredicate decides whether an event row qualifies for loading
type eventPredicate func(changelog.Event) bool

// buildEventFilter builds the single conjunctive predicate from the
// configured filters. Unconfigured filters impose no constraint.
// Zero-size objects are always rejected.
func (s *S3EventsSource) buildEventFilter() eventPredicate {
	keyPrefix := s.opts.keyPrefix
	ignorePrefix := s.opts.ignoreKeyPrefix
	ignoreSubstring := s.opts.ignoreKeySubstring
	extension := s.opts.extensionFilter

	return func(ev changelog.Event) bool {
		if ev.Size <= 0 {
			return false
		}
		if keyPrefix != "" && !strings.HasPrefix(ev.Key, keyPrefix) {
			return false
		}
		if ignorePrefix != "" && strings.HasPrefix(ev.Key, ignorePrefix) {
			return false
		}
		if ignoreSubstring != "" && strings.Contains(ev.Key, ignoreSubstring) {
			return false
		}
		if extension != "" && !strings.HasSuffix(ev.Key, extension) {
			return false
		}
		return true
	}
}

// filterAndDedup applies the predicate to every row and reduces survivors
// to a distinct set of (bucket, key) references, sorted by bucket then key
// so output is deterministic within one invocation.
func filterAndDedup(rows []changelog.Row, pred eventPredicate) []FileReference {
	seen := make(map[FileReference]struct{}, len(rows))
	refs := make([]FileReference, 0, len(rows))

	for _, row := range rows {
		if !pred(row.Event) {
			continue
		}
		ref := FileReference{Bucket: row.Event.Bucket, Key: row.Event.Key}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Bucket != refs[j].Bucket {
			return refs[i].Bucket < refs[j].Bucket
		}
		return refs[i].Key < refs[j].Key
	})

	return refs
}
