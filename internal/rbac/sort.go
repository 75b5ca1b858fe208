package rbac

import (
	"sort"

	"github.com/dropDatabas3/gatekeeper/internal/domain/types"
)

func sortRoles(rs []types.Role) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
}

func sortPermissions(ps []types.Permission) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
}
