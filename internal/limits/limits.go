package limits

// Memory safety limits to prevent unbounded growth and OOM

const (
	// MaxScanRows is the maximum number of rows that can be scanned into memory
	MaxScanRows = 100000

	// MaxQueryConditions is the maximum number of predicates compiled from one filter tree
	MaxQueryConditions = 1000

	// MaxInValues is the size of one IN (...) batch used by the relation loader
	MaxInValues = 1000

	// MaxIncludeDepth is the maximum nesting of eager includes
	MaxIncludeDepth = 8

	// MaxOrderByFields is the maximum number of ORDER BY fields
	MaxOrderByFields = 20

	// MaxGroupByFields is the maximum number of GROUP BY fields
	MaxGroupByFields = 20

	// MaxSelectFields is the maximum number of SELECT fields
	MaxSelectFields = 100

	// MaxBatchSize is the maximum number of rows in one INSERT statement
	MaxBatchSize = 10000

	// MaxBindParams is the maximum number of bound arguments per statement.
	// SQLite caps host parameters at 32766.
	MaxBindParams = 32766

	// MaxRawQuerySize is the maximum size in bytes for raw SQL queries
	MaxRawQuerySize = 10 * 1024 * 1024 // 10MB
)
