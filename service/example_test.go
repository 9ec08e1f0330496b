package service_test

import (
	"fmt"

	"github.com/jonwraymond/datahealth/config"
	"github.com/jonwraymond/datahealth/service"
)

func ExampleOpen() {
	svc, err := service.Open(&config.Config{
		DatabaseURL: "postgresql+asyncpg://app:secret@db:5432/app",
		RedisURL:    "redis://cache:6379/0",
		Retry:       config.RetrySettings{MaxAttempts: 3},
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer svc.Close()

	fmt.Println("Checks:", svc.Aggregator().CheckerNames())
	fmt.Println("Database:", svc.Database().Backend().Target)
	fmt.Println("Cache:", svc.Cache().Backend().Target)
	// Output:
	// Checks: [postgres redis]
	// Database: db:5432
	// Cache: cache:6379
}
