package sqlref

import "strings"

// keywords are words never reported as column or table names when they
// appear unquoted. Words that commonly double as column names (date, time,
// text, year) are left out; CAST targets are skipped as aliases.
var keywords = map[string]struct{}{}

func init() {
	for _, kw := range strings.Fields(`
		ALL AND ANY AS ASC BETWEEN BY CASE CAST COLLATE CROSS CURRENT_DATE
		CURRENT_TIME CURRENT_TIMESTAMP DEFAULT DELETE DESC DISTINCT ELSE END
		ESCAPE EXCEPT EXISTS FALSE FETCH FOLLOWING FROM FULL GLOB GROUP HAVING
		IF ILIKE IN INNER INSERT INTERSECT INTERVAL INTO IS ISNULL JOIN LATERAL
		LEFT LIKE LIMIT NATURAL NOT NOTNULL NULL NULLS OFFSET ON OR ORDER OUTER
		OVER PARTITION PRECEDING RANGE RECURSIVE REGEXP RETURNING RIGHT ROWS
		SELECT SET SIMILAR SOME THEN TRUE UNBOUNDED UNION UNIQUE UPDATE USING
		VALUES WHEN WHERE WINDOW WITH WITHIN
		INTEGER INT SMALLINT BIGINT TINYINT REAL FLOAT DOUBLE NUMERIC DECIMAL
		VARCHAR CHAR BOOLEAN BOOL BLOB SIGNED UNSIGNED
	`) {
		keywords[kw] = struct{}{}
	}
}

func isKeyword(word string) bool {
	_, ok := keywords[strings.ToUpper(word)]
	return ok
}

// statementKeywords mark text as a SQL statement.
var statementKeywords = map[string]bool{
	"SELECT": true,
	"WITH":   true,
	"INSERT": true,
	"UPDATE": true,
	"DELETE": true,
	"VALUES": true,
}

// whereTerminators end a WHERE body at its own nesting depth.
var whereTerminators = map[string]bool{
	"GROUP":     true,
	"ORDER":     true,
	"HAVING":    true,
	"LIMIT":     true,
	"OFFSET":    true,
	"UNION":     true,
	"INTERSECT": true,
	"EXCEPT":    true,
	"WINDOW":    true,
	"RETURNING": true,
}
