// Package all registers every built-in engine. Import it for side effects.
package all

import (
	_ "salesagg/internal/engine/duckdb"
	_ "salesagg/internal/engine/sqlite"
)
