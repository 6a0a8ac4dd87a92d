package identifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		year   string
		unit   string
		seq    int64
		want   string
	}{
		{"admin", PrefixAdmin, "24", "AD", 1, "ADM24AD0001"},
		{"teacher", PrefixTeacher, "25", "CS", 42, "TCH25CS0042"},
		{"student", "BT", "24", "CS", 7, "BT24CS0007"},
		{"overflow is not truncated", "BT", "24", "CS", 12345, "BT24CS12345"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.prefix, tt.year, tt.unit, tt.seq))
		})
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	first := Generate("BT", "24", "CS", 3)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Generate("BT", "24", "CS", 3))
	}
}

func TestCodes(t *testing.T) {
	assert.Equal(t, "CS", DepartmentCode("Computer Science"))
	assert.Equal(t, "CS", BranchCode("  computer science and engineering "))
	assert.Equal(t, "AD", DepartmentCode("Administration"))
	assert.Equal(t, "BT", ProgramCode("B.Tech"))
	assert.Equal(t, "MB", ProgramCode("MBA"))

	// fallback: first two letters uppercased
	assert.Equal(t, "BI", DepartmentCode("biotechnology"))
	assert.Equal(t, "AR", ProgramCode("Architecture"))
	assert.Equal(t, "QX", DepartmentCode("q"))
	assert.Equal(t, "XX", DepartmentCode(""))
}

func TestStaffPrefix(t *testing.T) {
	p, err := StaffPrefix("admin")
	require.NoError(t, err)
	assert.Equal(t, "ADM", p)

	p, err = StaffPrefix("Teacher")
	require.NoError(t, err)
	assert.Equal(t, "TCH", p)

	_, err = StaffPrefix("student")
	assert.Error(t, err)
}

func TestCounterKey(t *testing.T) {
	year := YearShort(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "24", year)
	assert.Equal(t, "staff_ADM24AD", CounterKey(KindStaff, PrefixAdmin+year+"AD"))
	assert.Equal(t, "student_BT24CS", CounterKey(KindStudent, "BT"+year+"CS"))
	assert.Equal(t, "05", YearShort(time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AK", Initials("anita kumari sharma"))
	assert.Equal(t, "R", Initials("Ravi"))
	assert.Equal(t, "", Initials("   "))
	assert.Equal(t, "JD", Initials("John 3rd Doe"))
}

func TestInitialPassword(t *testing.T) {
	dob := time.Date(2003, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "anit@09032003", InitialPassword("Anita Sharma", dob))
	assert.Equal(t, "li@09032003", InitialPassword("Li Wei", dob))
	assert.Equal(t, "obri@09032003", InitialPassword("O'Brien Pat", dob))
	assert.Equal(t, "@09032003", InitialPassword("", dob))
}
