package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/qrecmetrics/internal/fragment"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		ddl     string
		tables  []string
		columns []string
	}{
		{
			name:    "two tables",
			ddl:     "CREATE TABLE users (\n  id INTEGER,\n  name TEXT\n);\nCREATE TABLE orders (\n  id INTEGER,\n  user_id INTEGER,\n  total REAL\n);",
			tables:  []string{"orders", "users"},
			columns: []string{"id", "name", "total", "user_id"},
		},
		{
			name:    "if not exists and quoting",
			ddl:     "create table if not exists [Line Items] (\n  [item id] int,\n  `qty` int\n);",
			tables:  []string{"Line Items"},
			columns: []string{"item id", "qty"},
		},
		{
			name:    "constraints excluded",
			ddl:     "CREATE TABLE t (\n  a INT,\n  b INT,\n  CONSTRAINT pk PRIMARY KEY (a),\n  UNIQUE (b),\n  CHECK (a > 0),\n  FOREIGN KEY (b) REFERENCES u(id)\n);",
			tables:  []string{"t"},
			columns: []string{"a", "b"},
		},
		{
			name:    "constraint-like column names kept",
			ddl:     "CREATE TABLE t (\n  keyword TEXT,\n  primary_flag INT,\n  index_no INT\n);",
			tables:  []string{"t"},
			columns: []string{"index_no", "keyword", "primary_flag"},
		},
		{
			name:    "single line definition",
			ddl:     "CREATE TABLE t (a INT, b NUMERIC(10, 2), c TEXT DEFAULT 'x,y');",
			tables:  []string{"t"},
			columns: []string{"a", "b", "c"},
		},
		{
			name:    "comments skipped",
			ddl:     "CREATE TABLE t (\n  -- legacy column\n  a INT, -- trailing note\n  b INT\n);",
			tables:  []string{"t"},
			columns: []string{"a", "b"},
		},
		{
			name:    "comment markers inside string defaults",
			ddl:     "CREATE TABLE users (\n id int, /* surrogate */\n url text DEFAULT 'a--b',\n note text DEFAULT '/* x */',\n name text\n);",
			tables:  []string{"users"},
			columns: []string{"id", "name", "note", "url"},
		},
		{
			name:    "block comment before column",
			ddl:     "CREATE TABLE t (\n  /* audit columns */\n  created_at int,\n  /* multi\n     line, with comma */ id int\n);",
			tables:  []string{"t"},
			columns: []string{"created_at", "id"},
		},
		{
			name:    "apostrophe and ddl inside comments",
			ddl:     "-- CREATE TABLE ghost (x int);\nCREATE TABLE t (\n  a INT, -- the user's id\n  b INT /* closing ) here */\n);",
			tables:  []string{"t"},
			columns: []string{"a", "b"},
		},
		{
			name:    "quoted schema-qualified name",
			ddl:     "CREATE TABLE \"main\".\"users\" (\n  id INT,\n  name TEXT\n);\nCREATE TABLE main . `orders` (total REAL);",
			tables:  []string{"main.orders", "main.users"},
			columns: []string{"id", "name", "total"},
		},
		{
			name:    "bare schema-qualified name",
			ddl:     "CREATE TABLE main.users (id INT);",
			tables:  []string{"main.users"},
			columns: []string{"id"},
		},
		{
			name:    "create table as select",
			ddl:     "CREATE TABLE copy AS SELECT id FROM src;",
			tables:  []string{"copy"},
			columns: []string{},
		},
		{
			name:    "no ddl",
			ddl:     "SELECT 1;",
			tables:  []string{},
			columns: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Parse(tt.ddl)
			assert.Equal(t, tt.tables, s.Tables.Sorted())
			assert.Equal(t, tt.columns, s.Columns.Sorted())
		})
	}
}

func TestStripComments(t *testing.T) {
	assert.Equal(t, "a   b", stripComments("a /* x */ b"))
	assert.Equal(t, "a  \nb", stripComments("a -- x\nb"))
	assert.Equal(t, "'--' \"/*\" ", stripComments("'--' \"/*\" -- tail"))
	assert.Equal(t, "a  ", stripComments("a /* never closed"))
}

func TestLoad_SpiderLayout(t *testing.T) {
	path := ResolvePath(filepath.Join("testdata", "spider"), "shop")
	assert.Equal(t, filepath.Join("testdata", "spider", "shop", "schema.sql"), path)

	s := Load(path, nil)

	assert.Equal(t, []string{"customers", "orders"}, s.Tables.Sorted())
	assert.Equal(t, []string{"city", "customer_id", "name", "order_id", "total"}, s.Columns.Sorted())
}

func TestLoad_MissingFileIsEmptyWithWarning(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	s := Load(filepath.Join(t.TempDir(), "absent.sql"), zap.New(core))

	assert.Equal(t, 0, s.Tables.Len())
	assert.Equal(t, 0, s.Columns.Len())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "schema file not found, using empty schema", logs.All()[0].Message)
}

func TestNormalize(t *testing.T) {
	s := Parse("CREATE TABLE Users (\n  Name TEXT,\n  NAME TEXT\n);")

	folded := s.Normalize(fragment.Normalizer{Fold: true})

	assert.Equal(t, []string{"users"}, folded.Tables.Sorted())
	assert.Equal(t, []string{"name"}, folded.Columns.Sorted())
	assert.Equal(t, []string{"NAME", "Name"}, s.Columns.Sorted(), "original left untouched")
}
