// Package identifier derives the human-readable college and staff IDs.
//
// Formats:
//
//	staff and admin: {ADM|TCH}{YY}{DeptCode}{0001..}
//	student:         {ProgramCode}{YY}{BranchCode}{0001..}
//
// Every function here is pure. Sequence numbers come from the counter store.
package identifier

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Counter kinds
const (
	KindStaff   = "staff"
	KindStudent = "student"
)

// Staff prefixes
const (
	PrefixAdmin   = "ADM"
	PrefixTeacher = "TCH"
)

var departmentCodes = map[string]string{
	"administration":                         "AD",
	"computer science":                       "CS",
	"computer science and engineering":       "CS",
	"information technology":                 "IT",
	"electronics and communication":          "EC",
	"electrical engineering":                 "EE",
	"electrical and electronics engineering": "EE",
	"mechanical engineering":                 "ME",
	"civil engineering":                      "CE",
	"chemical engineering":                   "CH",
	"artificial intelligence":                "AI",
	"data science":                           "DS",
	"mathematics":                            "MA",
	"physics":                                "PH",
	"chemistry":                              "CY",
	"humanities":                             "HS",
	"management":                             "MG",
	"accounts":                               "AC",
	"library":                                "LB",
	"examination":                            "EX",
	"hostel":                                 "HO",
}

var programCodes = map[string]string{
	"b.tech":  "BT",
	"btech":   "BT",
	"m.tech":  "MT",
	"mtech":   "MT",
	"bca":     "CA",
	"mca":     "MC",
	"b.sc":    "BS",
	"bsc":     "BS",
	"m.sc":    "MS",
	"msc":     "MS",
	"bba":     "BB",
	"mba":     "MB",
	"phd":     "PD",
	"diploma": "DP",
}

// Generate joins the parts with a zero-padded four digit sequence. Sequences past
// 9999 are written in full, never truncated.
func Generate(prefixCode, yearShort, unitCode string, seq int64) string {
	return fmt.Sprintf("%s%s%s%04d", prefixCode, yearShort, unitCode, seq)
}

// StaffPrefix maps a staff role name to its ID prefix
func StaffPrefix(role string) (string, error) {
	switch strings.ToLower(role) {
	case "admin":
		return PrefixAdmin, nil
	case "teacher":
		return PrefixTeacher, nil
	default:
		return "", fmt.Errorf("no staff prefix for role %q", role)
	}
}

// DepartmentCode returns the two letter code for a department or branch name
func DepartmentCode(name string) string {
	return lookup(departmentCodes, name)
}

// BranchCode is DepartmentCode applied to a student's branch
func BranchCode(name string) string {
	return lookup(departmentCodes, name)
}

// ProgramCode returns the two letter code for a program name such as "B.Tech"
func ProgramCode(name string) string {
	return lookup(programCodes, name)
}

// YearShort returns the two digit year of t
func YearShort(t time.Time) string {
	return fmt.Sprintf("%02d", t.Year()%100)
}

// CounterKey is the counter document key for a kind and ID prefix, e.g. staff_ADM24AD
func CounterKey(kind, prefix string) string {
	return kind + "_" + prefix
}

// Initials returns up to two uppercase initials for a display name
func Initials(name string) string {
	initials := make([]rune, 0, 2)
	for _, f := range strings.Fields(name) {
		r := []rune(f)
		if !unicode.IsLetter(r[0]) {
			continue
		}
		initials = append(initials, unicode.ToUpper(r[0]))
		if len(initials) == 2 {
			break
		}
	}
	return string(initials)
}

// InitialPassword builds the first-login password: up to four lowercase letters of the
// first name, "@", then the date of birth as DDMMYYYY.
func InitialPassword(name string, dob time.Time) string {
	var first string
	if fields := strings.Fields(name); len(fields) > 0 {
		first = fields[0]
	}

	var b strings.Builder
	count := 0
	for _, r := range strings.ToLower(first) {
		if !unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(r)
		count++
		if count == 4 {
			break
		}
	}
	b.WriteString("@")
	b.WriteString(dob.Format("02012006"))
	return b.String()
}

func lookup(table map[string]string, name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if code, ok := table[key]; ok {
		return code
	}
	return fallbackCode(key)
}

// fallbackCode uppercases the first two letters, padding with X
func fallbackCode(name string) string {
	code := make([]rune, 0, 2)
	for _, r := range name {
		if !unicode.IsLetter(r) {
			continue
		}
		code = append(code, unicode.ToUpper(r))
		if len(code) == 2 {
			return string(code)
		}
	}
	for len(code) < 2 {
		code = append(code, 'X')
	}
	return string(code)
}
