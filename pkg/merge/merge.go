// Package merge implements the Merger/Validator component (spec C4): it
// groups deterministic and LLM draft events that describe the same
// underlying occurrence, merges them into one canonical Event, validates
// the result, and scores it with a confidence number used by the lifecycle
// core's auto-approval policy.
//
// The grouping/merge algorithm is a direct port of
// backend/app/services/extraction/merger.py from the original EventHint
// service: bucket drafts by start time rounded down to the nearest 15
// minutes, then within each bucket treat two drafts as the same event when
// their titles' word sets overlap (Jaccard) at or above 0.5, or when the
// overlap is at least 0.3 and the lowercased titles' Jaro-Winkler
// similarity reaches 0.85.
package merge

import (
	"sort"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/Csabesz1130/eventhint/pkg/model"
)

// auxiliarySimilarityThreshold is the Jaro-Winkler floor used to rescue
// titles whose Jaccard word-overlap falls just short of the primary
// threshold (e.g. "Algebra exam" vs "Algebra exams", Jaccard 1/3), catching near
// misses the word-set comparison alone would split into separate events.
const auxiliarySimilarityThreshold = 0.85

const jaccardRescueFloor = 0.3

// Draft is a candidate Event produced by either the deterministic
// extractor or the LLM extractor, tagged with its source so the merge
// step can prefer deterministic fields when both agree.
type Draft struct {
	Event  model.Event
	Source model.ExtractionMethod
}

const titleSimilarityThreshold = 0.5

const bucketWindow = 15 * time.Minute

// MergeAndValidate groups drafts into canonical events, merges each group,
// and validates the result. Drafts that fail validation are dropped rather
// than propagated, mirroring merger.py's behavior of silently excluding
// malformed candidates.
func MergeAndValidate(drafts []Draft) []model.Event {
	groups := bucketByStart(drafts)

	merged := make([]model.Event, 0, len(groups))
	for _, group := range groups {
		for _, cluster := range clusterBySimilarTitle(group) {
			ev := mergeCluster(cluster)
			if err := ev.Validate(); err != nil {
				continue
			}
			merged = append(merged, ev)
		}
	}
	return merged
}

// bucketByStart groups drafts whose start times round down to the same
// 15-minute boundary.
func bucketByStart(drafts []Draft) map[time.Time][]Draft {
	groups := make(map[time.Time][]Draft)
	for _, d := range drafts {
		key := d.Event.Start.Truncate(bucketWindow)
		groups[key] = append(groups[key], d)
	}
	return groups
}

// clusterBySimilarTitle splits a start-time bucket into clusters of
// pairwise title-similar drafts. It's a simple union-find over the
// threshold relation, matching merger.py's _deduplicate_by_similarity.
func clusterBySimilarTitle(group []Draft) [][]Draft {
	n := len(group)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if titlesSimilar(group[i].Event.Title, group[j].Event.Title) {
				union(i, j)
			}
		}
	}

	byRoot := make(map[int][]Draft)
	for i, d := range group {
		r := find(i)
		byRoot[r] = append(byRoot[r], d)
	}

	clusters := make([][]Draft, 0, len(byRoot))
	for _, c := range byRoot {
		clusters = append(clusters, c)
	}
	return clusters
}

// titlesSimilar reports whether two titles' lowercased word sets overlap
// (Jaccard similarity) at or above titleSimilarityThreshold, or at or above
// jaccardRescueFloor with a lowercased Jaro-Winkler similarity of at least
// auxiliarySimilarityThreshold.
func titlesSimilar(a, b string) bool {
	wa := titleWordSet(a)
	wb := titleWordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return a == b
	}

	intersection := 0
	for w := range wa {
		if wb[w] {
			intersection++
		}
	}
	union := len(wa) + len(wb) - intersection
	if union == 0 {
		return false
	}

	jaccard := float64(intersection) / float64(union)
	if jaccard >= titleSimilarityThreshold {
		return true
	}
	if jaccard >= jaccardRescueFloor {
		if sim, err := edlib.StringsSimilarity(strings.ToLower(a), strings.ToLower(b), edlib.JaroWinkler); err == nil {
			return float64(sim) >= auxiliarySimilarityThreshold
		}
	}
	return false
}

func titleWordSet(title string) map[string]bool {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(title)))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// mergeCluster merges a cluster of same-event drafts into one canonical
// Event, preferring the deterministic extractor's fields as the base and
// filling gaps from later (LLM) drafts. labels are unioned, reminders are
// deduped by minutes, and notes are concatenated.
func mergeCluster(cluster []Draft) model.Event {
	sort.SliceStable(cluster, func(i, j int) bool {
		return rank(cluster[i].Source) < rank(cluster[j].Source)
	})

	base := cluster[0].Event
	method := base.Method
	if len(cluster) > 1 {
		method = model.MethodHybrid
	}

	labelSet := map[string]bool{}
	for _, l := range base.Labels {
		labelSet[l] = true
	}
	reminderSet := map[int]model.Reminder{}
	for _, r := range base.Reminders {
		reminderSet[r.Minutes] = r
	}
	notes := []string{}
	if base.Notes != "" {
		notes = append(notes, base.Notes)
	}

	for _, d := range cluster[1:] {
		ev := d.Event
		if base.End == nil && ev.End != nil {
			base.End = ev.End
		}
		if base.Location == "" && ev.Location != "" {
			base.Location = ev.Location
		}
		if base.OnlineURL == "" && ev.OnlineURL != "" {
			base.OnlineURL = ev.OnlineURL
		}
		if base.RRule == "" && ev.RRule != "" {
			base.RRule = ev.RRule
		}
		if len(base.Attendees) == 0 && len(ev.Attendees) > 0 {
			base.Attendees = ev.Attendees
		}
		for _, l := range ev.Labels {
			labelSet[l] = true
		}
		for _, r := range ev.Reminders {
			if _, exists := reminderSet[r.Minutes]; !exists {
				reminderSet[r.Minutes] = r
			}
		}
		if ev.Notes != "" {
			notes = append(notes, ev.Notes)
		}
	}

	base.Method = method
	base.Labels = setToSortedSlice(labelSet)
	base.Reminders = reminderMapToSlice(reminderSet)
	base.Notes = strings.Join(notes, "\n")
	return base
}

// rank orders drafts deterministic-first so the base is always the
// deterministic extractor's output when one is present in the cluster.
func rank(m model.ExtractionMethod) int {
	if m == model.MethodDeterministic {
		return 0
	}
	return 1
}

func setToSortedSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func reminderMapToSlice(set map[int]model.Reminder) []model.Reminder {
	out := make([]model.Reminder, 0, len(set))
	for _, r := range set {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Minutes < out[j].Minutes })
	return out
}
