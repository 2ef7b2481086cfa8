package mail

import (
	"fmt"
	"regexp"
	"strings"
)

// The digest mail body uses a deliberately tiny template dialect with exactly
// two rules: scalar substitution `{{ name }}` and a single-level repeated
// block `{% for item in list %}...{{ item.field }}...{% endfor %}`. Missing
// or nil values render as the empty string. This is not a general template
// language and is not meant to grow into one.

var (
	loopPattern   = regexp.MustCompile(`(?s)\{%\s*for\s+(\w+)\s+in\s+(\w+)\s*%\}(.*?)\{%\s*endfor\s*%\}`)
	scalarPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)
)

// Render substitutes context values into the template. List values must be
// []map[string]any; anything else under a for-block target renders as "".
func Render(template string, context map[string]any) string {
	out := loopPattern.ReplaceAllStringFunc(template, func(block string) string {
		m := loopPattern.FindStringSubmatch(block)
		itemVar, listVar, body := m[1], m[2], m[3]

		items, ok := context[listVar].([]map[string]any)
		if !ok {
			return ""
		}

		fieldPattern := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(itemVar) + `\.(\w+)\s*\}\}`)
		var b strings.Builder
		for _, item := range items {
			b.WriteString(fieldPattern.ReplaceAllStringFunc(body, func(ref string) string {
				field := fieldPattern.FindStringSubmatch(ref)[1]
				return stringify(item[field])
			}))
		}
		return b.String()
	})

	return scalarPattern.ReplaceAllStringFunc(out, func(ref string) string {
		key := scalarPattern.FindStringSubmatch(ref)[1]
		return stringify(context[key])
	})
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
