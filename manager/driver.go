package manager

import (
	// Registers the sqlserver database/sql driver used when no handle is
	// injected through WithDB.
	_ "github.com/microsoft/go-mssqldb"
)
