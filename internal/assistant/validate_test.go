package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAccepts(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{"plain select", "SELECT * FROM employees"},
		{"lowercase", "select name from employees"},
		{"leading whitespace", "   \n\tSELECT 1"},
		{"trailing terminator", "SELECT 1;"},
		{"join and aggregate", "SELECT d.name, COUNT(*) FROM emp e JOIN dept d ON e.dept_id = d.id GROUP BY d.name"},
		{"keyword inside identifier", "SELECT created_at, updates FROM audit_log"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, Validate(tc.sql))
		})
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		sql    string
		reason string
	}{
		{"empty", "", "empty query"},
		{"whitespace only", "   \n\t  ", "empty query"},
		{"update statement", "UPDATE employees SET salary = 0", "only read-only statements allowed"},
		{"drop statement", "DROP TABLE employees", "only read-only statements allowed"},
		{"with clause", "WITH x AS (SELECT 1) SELECT * FROM x", "only read-only statements allowed"},
		{"embedded drop", "SELECT * FROM t; DROP TABLE t", "disallowed operation: DROP"},
		{"embedded delete", "SELECT 1 WHERE EXISTS (DELETE FROM t)", "disallowed operation: DELETE"},
		{"lowercase keyword", "SELECT 1; drop table t", "disallowed operation: DROP"},
		{"exec", "SELECT 1; EXEC sp_who", "disallowed operation: EXEC"},
		{"two selects", "SELECT 1; SELECT 2", "multiple statements not allowed"},
		{"two selects terminated", "SELECT 1; SELECT 2;", "multiple statements not allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.sql)
			require.Error(t, err)
			var rejected *ErrValidationRejected
			require.ErrorAs(t, err, &rejected)
			assert.Equal(t, tc.reason, rejected.Reason)
		})
	}
}
