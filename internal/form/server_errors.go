package form

import (
	"strings"

	"agentai-console/pkg/models"
)

// upstream field names that differ from the wizard's
var serverAliases = map[string]string{
	"ig_id":     "igAccountId",
	"fileImage": "profileImage",
	"nameAgent": "name",
}

// MapServerError splits an upstream error payload into wizard field errors
// and global toasts. Input entries whose path matches no wizard field are
// downgraded to toasts.
func MapServerError(p models.ErrorPayload) (map[string]string, []string) {
	fields := map[string]string{}
	toasts := append([]string(nil), p.Toast...)

	for _, in := range p.Input {
		path := in.Path
		if alias, ok := serverAliases[path]; ok {
			path = alias
		}
		root := path
		if i := strings.IndexAny(root, ".["); i >= 0 {
			root = root[:i]
		}
		if _, ok := fieldTabs[root]; !ok {
			toasts = append(toasts, in.Text)
			continue
		}
		if _, dup := fields[path]; !dup {
			fields[path] = in.Text
		}
	}
	return fields, toasts
}

// FieldsTab picks the tab to route the user to for a set of field errors.
func FieldsTab(fields map[string]string) Tab {
	if len(fields) == 0 {
		return ""
	}
	return firstTab(fields)
}
