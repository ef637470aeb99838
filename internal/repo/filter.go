package repo

import "strings"

// Where renders f as a SQL WHERE clause with '?' placeholders. substrFunc
// names the dialect's "position of substring" function (instr for SQLite,
// strpos for PostgreSQL). An empty filter yields an empty clause.
func (f Filter) Where(substrFunc string) (string, []any) {
	var conds []string
	var args []any
	if f.Healthy != nil {
		conds = append(conds, "is_healthy = ?")
		args = append(args, *f.Healthy)
	}
	if f.URLContains != "" {
		conds = append(conds, substrFunc+"(url, ?) > 0")
		args = append(args, f.URLContains)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
