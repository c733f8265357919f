package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/marcelsud/vendor-relay/config"
	"github.com/marcelsud/vendor-relay/directory"
	"github.com/marcelsud/vendor-relay/dispatch/postgres"
)

/*
Migrate - Cria as tabelas do PostgreSQL e carrega os vendors

Este CLI:
- Carrega Config com as variáveis POSTGRES_*
- Cria dispatch_logs e vendors (idempotente)
- Faz upsert dos vendors de VENDORS_FILE, se o arquivo existir

Execute com:
  go run cmd/migrate/main.go [-vendors vendors.yaml] [-drop]

Certifique-se de que:
1. PostgreSQL está rodando (docker-compose up)
2. .env está configurado com POSTGRES_* variables
*/

func main() {
	vendorsFile := flag.String("vendors", "", "vendors YAML to upsert (default VENDORS_FILE)")
	drop := flag.Bool("drop", false, "drop tables before creating them")
	flag.Parse()

	// 1. Carregar configuração
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Printf("❌ Error loading config: %v\n", err)
		return
	}
	if err := cfg.ValidatePostgres(); err != nil {
		fmt.Printf("❌ Configuration validation failed: %v\n", err)
		return
	}

	ctx := context.Background()

	// 2. Conectar ao PostgreSQL
	fmt.Printf("🔗 Connecting to PostgreSQL at %s:%s...\n", cfg.PostgresHost, cfg.PostgresPort)
	repo, err := postgres.NewRepositoryWithPoolConfig(
		cfg.PostgresConnectionString(),
		cfg.GetPostgresMaxOpenConns(),
		cfg.GetPostgresMaxIdleConns(),
		cfg.GetPostgresConnMaxLifeMinutes(),
	)
	if err != nil {
		fmt.Printf("❌ Error connecting to PostgreSQL: %v\n", err)
		return
	}
	defer repo.Close(ctx)
	fmt.Println("✅ Connected to PostgreSQL!")

	// 3. Schema
	if *drop {
		if err := repo.DropTables(ctx); err != nil {
			fmt.Printf("❌ Error dropping tables: %v\n", err)
			return
		}
		fmt.Println("🗑️  Tables dropped")
	}
	if err := repo.CreateTables(ctx); err != nil {
		fmt.Printf("❌ Error creating tables: %v\n", err)
		return
	}
	fmt.Println("✅ Tables ready: dispatch_logs, vendors")

	// 4. Vendors
	path := *vendorsFile
	if path == "" {
		path = cfg.VendorsFile
	}
	file, err := directory.Load(path)
	if err != nil {
		fmt.Printf("⚠️  Skipping vendors: %v\n", err)
		return
	}
	vendors, err := file.ListVendorsWithContactNumber(ctx)
	if err != nil {
		fmt.Printf("❌ Error listing vendors: %v\n", err)
		return
	}
	for _, v := range vendors {
		if err := repo.UpsertVendor(ctx, v); err != nil {
			fmt.Printf("❌ Error upserting vendor %s: %v\n", v.ID, err)
			return
		}
		fmt.Printf("   [%s] %s opens %s\n", v.ID, v.Name, v.OpenTime)
	}

	fmt.Printf("\n✅ Migration completed, %d vendor(s) loaded\n", len(vendors))
}
