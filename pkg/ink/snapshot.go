package ink

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tale-forge/inkweave/internal/address"
)

// Save serializes a Runtime State into a plain map tree (spec §6.2),
// then marshals it with yaml.v3. The tree uses only maps, slices, and
// scalars so it round-trips losslessly through any YAML decoder, not
// just this one.
func Save(s *State) ([]byte, error) {
	tree := map[string]interface{}{
		"version": map[string]interface{}{
			"engine": s.Version.Engine,
			"tree":   s.Version.Tree,
		},
		"current": map[string]interface{}{
			"knot":   s.Current.Knot,
			"stitch": s.Current.Stitch,
		},
		"variables": valuesToTree(s.Variables),
		"temp":      valuesToTree(s.Temp),
		"visits":    visitsToTree(s.Visits),
		"seeds":      seedsToTree(s.Seeds),
		"output":     paragraphsToTree(s.Output),
		"paragraphs": paragraphsToTree(s.Paragraphs),
		"choices":    choicesToTree(s.Choices),
		"is_over":    s.IsOver,
	}

	return yaml.Marshal(tree)
}

// Load reconstructs a Runtime State from a snapshot previously produced
// by Save, validating its Version against story's declared Version.Tree
// (spec §9 "migration": a newer snapshot than the story supports is a
// hard error, never a silent best-effort load).
func Load(data []byte, story *Story) (*State, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, &MigrationError{Message: "snapshot is not valid YAML", Nested: err}
	}

	snapshotTree, err := treeVersion(tree)
	if err != nil {
		return nil, err
	}
	if snapshotTree > story.Version.Tree {
		return nil, &MigrationError{Message: fmt.Sprintf(
			"snapshot version tree %d is newer than this story's supported tree %d",
			snapshotTree, story.Version.Tree)}
	}

	s := NewState(story)
	s.Version.Tree = snapshotTree
	if engine, ok := tree["version"].(map[string]interface{})["engine"].(string); ok {
		s.Version.Engine = engine
	}

	if current, ok := tree["current"].(map[string]interface{}); ok {
		s.Current.Knot, _ = current["knot"].(string)
		s.Current.Stitch, _ = current["stitch"].(string)
	}

	if vars, ok := tree["variables"].(map[string]interface{}); ok {
		s.Variables = treeToValues(vars)
	}
	if temp, ok := tree["temp"].(map[string]interface{}); ok {
		s.Temp = treeToValues(temp)
	}
	if visits, ok := tree["visits"].(map[string]interface{}); ok {
		s.Visits = treeToVisits(visits)
	}
	if seeds, ok := tree["seeds"].(map[string]interface{}); ok {
		s.Seeds = treeToSeeds(seeds)
	}
	if output, ok := tree["output"].([]interface{}); ok {
		s.Output = treeToParagraphs(output)
	}
	if paragraphs, ok := tree["paragraphs"].([]interface{}); ok {
		s.Paragraphs = treeToParagraphs(paragraphs)
	}
	if choices, ok := tree["choices"].([]interface{}); ok {
		s.Choices = treeToChoices(choices)
	}
	if over, ok := tree["is_over"].(bool); ok {
		s.IsOver = over
	}

	return s, nil
}

func treeVersion(tree map[string]interface{}) (int, error) {
	versionNode, ok := tree["version"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	switch t := versionNode["tree"].(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		return int(t), nil
	case nil:
		return 0, nil
	default:
		return 0, &MigrationError{Message: fmt.Sprintf("snapshot version.tree has unexpected type %T", t)}
	}
}

func valuesToTree(vals map[string]Value) map[string]interface{} {
	out := make(map[string]interface{}, len(vals))
	for k, v := range vals {
		out[k] = valueToTree(v)
	}
	return out
}

func valueToTree(v Value) interface{} {
	if v.Kind == ListKind {
		return listToTree(v.List)
	}
	return v.ToInterface()
}

func listToTree(l *List) map[string]interface{} {
	out := map[string]interface{}{}
	if l == nil {
		return out
	}
	for listName, set := range l.Sets {
		items := make([]string, 0, len(set))
		for item, active := range set {
			if active {
				items = append(items, item)
			}
		}
		out[listName] = items
	}
	return out
}

func treeToValues(tree map[string]interface{}) map[string]Value {
	out := make(map[string]Value, len(tree))
	for k, raw := range tree {
		out[k] = treeToValue(raw)
	}
	return out
}

func treeToValue(raw interface{}) Value {
	if m, ok := raw.(map[string]interface{}); ok {
		return ListValueOf(treeToList(m))
	}
	return FromInterface(raw)
}

func treeToList(tree map[string]interface{}) *List {
	l := NewList()
	for listName, raw := range tree {
		items, ok := raw.([]interface{})
		if !ok {
			continue
		}
		set := make(map[string]bool, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				set[s] = true
			}
		}
		l.Sets[listName] = set
	}
	return l
}

func visitsToTree(v address.Visits) map[string]interface{} {
	out := make(map[string]interface{}, len(v))
	for knot, stitches := range v {
		stitchOut := make(map[string]interface{}, len(stitches))
		for stitch, labels := range stitches {
			labelOut := make(map[string]interface{}, len(labels))
			for label, count := range labels {
				labelOut[label] = count
			}
			stitchOut[stitch] = labelOut
		}
		out[knot] = stitchOut
	}
	return out
}

func treeToVisits(tree map[string]interface{}) address.Visits {
	v := address.NewVisits()
	for knot, rawStitches := range tree {
		stitches, ok := rawStitches.(map[string]interface{})
		if !ok {
			continue
		}
		stitchMap := map[string]map[string]int{}
		for stitch, rawLabels := range stitches {
			labels, ok := rawLabels.(map[string]interface{})
			if !ok {
				continue
			}
			labelMap := map[string]int{}
			for label, rawCount := range labels {
				labelMap[label] = toInt(rawCount)
			}
			stitchMap[stitch] = labelMap
		}
		v[knot] = stitchMap
	}
	return v
}

func toInt(raw interface{}) int {
	switch t := raw.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}

func seedsToTree(seeds map[string]uint64) map[string]interface{} {
	out := make(map[string]interface{}, len(seeds))
	for k, v := range seeds {
		out[k] = v
	}
	return out
}

func treeToSeeds(tree map[string]interface{}) map[string]uint64 {
	out := make(map[string]uint64, len(tree))
	for k, raw := range tree {
		switch t := raw.(type) {
		case int:
			out[k] = uint64(t)
		case int64:
			out[k] = uint64(t)
		case uint64:
			out[k] = t
		case float64:
			out[k] = uint64(t)
		}
	}
	return out
}

func paragraphsToTree(paragraphs []Paragraph) []interface{} {
	out := make([]interface{}, 0, len(paragraphs))
	for _, p := range paragraphs {
		out = append(out, map[string]interface{}{
			"text": p.Text,
			"tags": p.Tags,
		})
	}
	return out
}

func choicesToTree(choices []PendingChoice) []interface{} {
	out := make([]interface{}, 0, len(choices))
	for _, c := range choices {
		out = append(out, map[string]interface{}{
			"title":  c.Title,
			"text":   c.Text,
			"divert": c.Divert,
			"path":   c.Path,
		})
	}
	return out
}

func treeToChoices(raw []interface{}) []PendingChoice {
	out := make([]PendingChoice, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		c := PendingChoice{}
		c.Title, _ = m["title"].(string)
		c.Text, _ = m["text"].(string)
		c.Divert, _ = m["divert"].(string)
		c.Path, _ = m["path"].(string)
		out = append(out, c)
	}
	return out
}

func treeToParagraphs(raw []interface{}) []Paragraph {
	out := make([]Paragraph, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		p := Paragraph{}
		p.Text, _ = m["text"].(string)
		if tags, ok := m["tags"].([]interface{}); ok {
			for _, t := range tags {
				if s, ok := t.(string); ok {
					p.Tags = append(p.Tags, s)
				}
			}
		}
		out = append(out, p)
	}
	return out
}
