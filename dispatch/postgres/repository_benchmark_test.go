//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/vendor-relay/dispatch"
)

/*
Benchmarks para o log de disparos no PostgreSQL

Execute com: go test -tags=integration -bench=. -benchmem ./dispatch/postgres/

Para melhorar a velocidade dos benchmarks, habilite o reuso de containers:
  export TESTCONTAINERS_REUSE_ENABLE=true

NOTA: Cada benchmark cria um novo container PostgreSQL. A medição começa após
      a inicialização (b.ResetTimer) para não incluir o overhead do container.
*/

func BenchmarkRecord_Postgres(b *testing.B) {
	ctx := context.Background()

	pgContainer, cleanup := SetupPostgresContainer(b, ctx)
	defer cleanup()

	repo := CreateTestRepository(b, pgContainer.ConnStr)
	defer repo.Close(ctx)

	sentAt := time.Date(2024, 5, 18, 4, 30, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := repo.Record(ctx, dispatch.LogEntry{
			ID:       uuid.NewString(),
			VendorID: fmt.Sprintf("v%d", i),
			Date:     "2024-05-18",
			Slot:     dispatch.Open,
			SentAt:   sentAt,
			Success:  true,
		})
		if err != nil {
			b.Fatalf("Record failed: %v", err)
		}
	}
}

func BenchmarkExists_Postgres(b *testing.B) {
	ctx := context.Background()

	pgContainer, cleanup := SetupPostgresContainer(b, ctx)
	defer cleanup()

	repo := CreateTestRepository(b, pgContainer.ConnStr)
	defer repo.Close(ctx)

	err := repo.Record(ctx, dispatch.LogEntry{
		ID:       uuid.NewString(),
		VendorID: "v1",
		Date:     "2024-05-18",
		Slot:     dispatch.PreOpen,
		SentAt:   time.Now().UTC(),
		Success:  true,
	})
	if err != nil {
		b.Fatalf("Record failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := repo.Exists(ctx, "v1", "2024-05-18", dispatch.PreOpen); err != nil {
			b.Fatalf("Exists failed: %v", err)
		}
	}
}
