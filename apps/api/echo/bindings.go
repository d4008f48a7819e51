package echoapi

import (
	"cmp"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/studytrack/core/login"
)

var orderingParam = "ordering"

type OrderingField struct {
	Field     string
	Ascending bool
}

// Ordering is bound from the `ordering` query param, eg. `?ordering=-loginTime,studentName`.
type Ordering struct {
	Orderings []OrderingField
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, OrderingField{Field: field, Ascending: !descending})
	}
}

// loginOrderings compares two login records on one field; unknown fields compare equal.
var loginOrderings = map[string]func(a, b login.Record) int{
	"loginTime": func(a, b login.Record) int {
		return a.LoginTime.Compare(b.LoginTime)
	},
	"logoutTime": func(a, b login.Record) int {
		return a.LogoutTime.Time.Compare(b.LogoutTime.Time)
	},
	"sessionDuration": func(a, b login.Record) int {
		return cmp.Compare(a.SessionDuration, b.SessionDuration)
	},
	"studentName": func(a, b login.Record) int {
		return strings.Compare(a.StudentName, b.StudentName)
	},
	"status": func(a, b login.Record) int {
		return strings.Compare(string(a.Status), string(b.Status))
	},
}

// SortLogins sorts recs in place. Records stay in stored order without orderings.
func (ord *Ordering) SortLogins(recs []login.Record) {
	if len(ord.Orderings) == 0 {
		return
	}
	sort.SliceStable(recs, func(i, j int) bool {
		for _, o := range ord.Orderings {
			compare, ok := loginOrderings[o.Field]
			if !ok {
				continue
			}
			c := compare(recs[i], recs[j])
			if c == 0 {
				continue
			}
			if o.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}
