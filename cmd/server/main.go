package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/bridge"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/config"
	kafkaevents "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/ledger"
	kafkarelay "github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/relay/kafka"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/storage/memory"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/storage/postgres"
	"github.com/sheikh-saqib/crosschain-yield-ledger-system/internal/vault"
)

const (
	vaultAccount  = "vault"
	bridgeAccount = "bridge-pool"
)

// settlementStub stands in for the externally operated settlement side of
// the vault. It records the asset movements and always succeeds.
type settlementStub struct {
	log *zap.Logger
}

func (s settlementStub) Collect(ctx context.Context, holder string, amount decimal.Decimal) error {
	s.log.Info("settlement collect", zap.String("holder", holder), zap.String("amount", amount.String()))
	return nil
}

func (s settlementStub) Payout(ctx context.Context, holder string, amount decimal.Decimal) error {
	s.log.Info("settlement payout", zap.String("holder", holder), zap.String("amount", amount.String()))
	return nil
}

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	var store interfaces.AccountStore
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open postgres", zap.Error(err))
		}
		defer db.Close()

		pgStore := postgres.NewPostgresAccountStore(db)
		if _, err := pgStore.GlobalRate(ctx); err == sql.ErrNoRows {
			if err := pgStore.SetGlobalRate(ctx, cfg.InitialGlobalRate); err != nil {
				log.Fatal("seed global rate", zap.Error(err))
			}
		} else if err != nil {
			log.Fatal("read global rate", zap.Error(err))
		}
		store = pgStore
	} else {
		store = memory.NewMemoryAccountStore(cfg.InitialGlobalRate)
	}

	ledgerOpts := []ledger.Option{ledger.WithLogger(log)}
	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := kafkaevents.NewPublisher(cfg.KafkaBrokers)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		ledgerOpts = append(ledgerOpts, ledger.WithPublisher(publisher))
	}
	ledgerService := ledger.NewLedger(store, cfg.AdminAccount, ledgerOpts...)

	if err := ledgerService.GrantMintBurnRole(cfg.AdminAccount, vaultAccount); err != nil {
		log.Fatal("grant vault role", zap.Error(err))
	}
	if err := ledgerService.GrantMintBurnRole(cfg.AdminAccount, bridgeAccount); err != nil {
		log.Fatal("grant bridge role", zap.Error(err))
	}

	vaultService := vault.NewVault(vaultAccount, ledgerService, settlementStub{log: log}, log)

	var adapter *bridge.Adapter
	if len(cfg.KafkaBrokers) > 0 {
		relay := kafkarelay.NewRelay(cfg.KafkaBrokers)
		defer relay.Close()

		adapterOpts := []bridge.Option{bridge.WithLogger(log)}
		if publisher != nil {
			adapterOpts = append(adapterOpts, bridge.WithPublisher(publisher))
		}
		adapter = bridge.NewAdapter(cfg.ChainID, bridgeAccount, ledgerService, relay, cfg.RemoteChains, adapterOpts...)

		consumer := kafkarelay.NewConsumer(cfg.KafkaBrokers, cfg.ChainID, "bridge-"+cfg.ChainID, adapter.HandleMessage, log)
		defer consumer.Close()
		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("relay consumer stopped", zap.Error(err))
			}
		}()
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	http.HandleFunc("/accounts/balance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		accountId := r.URL.Query().Get("account_id")
		if accountId == "" {
			http.Error(w, "account_id is a mandatory field", http.StatusBadRequest)
			return
		}

		balance, err := ledgerService.BalanceOf(r.Context(), accountId)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		principal, err := ledgerService.PrincipalBalanceOf(r.Context(), accountId)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rate, err := ledgerService.UserInterestRate(r.Context(), accountId)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		lastUpdated, err := ledgerService.UserLastUpdated(r.Context(), accountId)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		response := struct {
			AccountID   string          `json:"account_id"`
			Balance     decimal.Decimal `json:"balance"`
			Principal   decimal.Decimal `json:"principal"`
			Rate        decimal.Decimal `json:"rate"`
			LastUpdated time.Time       `json:"last_updated"`
		}{
			AccountID:   accountId,
			Balance:     balance,
			Principal:   principal,
			Rate:        rate,
			LastUpdated: lastUpdated,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	http.HandleFunc("/rates/global", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		rate, err := ledgerService.GlobalInterestRate(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		response := struct {
			GlobalRate      decimal.Decimal `json:"global_rate"`
			PrecisionFactor decimal.Decimal `json:"precision_factor"`
		}{
			GlobalRate:      rate,
			PrecisionFactor: ledgerService.PrecisionFactor(),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})

	http.HandleFunc("/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			FromAccount string `json:"from_account"`
			ToAccount   string `json:"to_account"`
			Amount      string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := ledgerService.Transfer(r.Context(), req.FromAccount, req.ToAccount, amount); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"transferred"}`))
	})

	http.HandleFunc("/deposits", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Holder string `json:"holder"`
			Amount string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := vaultService.Deposit(r.Context(), req.Holder, amount); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"deposited"}`))
	})

	http.HandleFunc("/redemptions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Holder string `json:"holder"`
			Amount string `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if err := vaultService.Redeem(r.Context(), req.Holder, amount); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status":"redeemed"}`))
	})

	http.HandleFunc("/bridge/transfers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if adapter == nil {
			http.Error(w, "bridging is not configured on this node", http.StatusServiceUnavailable)
			return
		}

		var req struct {
			Sender    string `json:"sender"`
			Receiver  string `json:"receiver"`
			Amount    string `json:"amount"`
			DestChain string `json:"dest_chain"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		amount, err := parseAmount(req.Amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		msg, err := adapter.Send(r.Context(), req.Sender, req.Receiver, amount, req.DestChain)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(struct {
			MessageID string `json:"message_id"`
		}{MessageID: msg.ID})
	})

	http.HandleFunc("/admin/rate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Caller string          `json:"caller"`
			Rate   decimal.Decimal `json:"rate"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := ledgerService.SetGlobalRate(r.Context(), req.Caller, req.Rate); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"rate updated"}`))
	})

	http.HandleFunc("/admin/roles", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Caller  string `json:"caller"`
			Account string `json:"account"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		if err := ledgerService.GrantMintBurnRole(req.Caller, req.Account); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"role granted"}`))
	})

	log.Info("starting server", zap.String("addr", cfg.HTTPAddr), zap.String("chain_id", cfg.ChainID))
	if err := http.ListenAndServe(cfg.HTTPAddr, nil); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// parseAmount accepts a decimal amount or the literal "max", which resolves
// to the holder's entire balance downstream.
func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "max" {
		return ledger.MaxAmount, nil
	}
	return decimal.NewFromString(raw)
}
