// Package all registers every built-in mirror backend. Import it for side
// effects.
package all

import (
	_ "salesagg/internal/storage/postgres"
	_ "salesagg/internal/storage/sqlite"
)
