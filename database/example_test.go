package database_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/datahealth/config"
	"github.com/jonwraymond/datahealth/database"
)

func ExampleNewManager() {
	_, err := database.NewManager(database.Config{})
	fmt.Println(errors.Is(err, config.ErrMissingDatabaseURL))

	mgr, err := database.NewManager(database.Config{
		URL: "postgresql+asyncpg://app:secret@db:5432/app",
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer mgr.Close()

	fmt.Println(mgr.Name(), mgr.Config().MaxConns(), mgr.Backend().Target)
	fmt.Println(mgr.Alive(context.Background()))
	// Output:
	// true
	// postgres 30 db:5432
	// true
}
