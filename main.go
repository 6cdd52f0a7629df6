package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"eventbook-client/config"
	"eventbook-client/contracts"
	"eventbook-client/handlers"
	"eventbook-client/journal"
	"eventbook-client/session"
	"eventbook-client/wallet"
)

func connectToEthereum(rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum client: %w", err)
	}

	log.Println("Successfully connected to Ethereum node!")
	return client, nil
}

func openWallet(cfg *config.Config, client *ethclient.Client) (session.Wallet, error) {
	switch {
	case cfg.PrivateKey != "":
		w, err := wallet.NewKeyWallet(client, cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		return w, nil
	case cfg.KeystoreDir != "":
		return wallet.NewKeystoreWallet(client, cfg.KeystoreDir, cfg.KeystoreAccount, cfg.KeystorePassphrase), nil
	case cfg.WatchAddress != (common.Address{}):
		log.Printf("Warning: no signing key configured, watching %s read-only", cfg.WatchAddress.Hex())
		return wallet.NewWatchWallet(cfg.WatchAddress), nil
	default:
		return nil, fmt.Errorf("one of PRIVATE_KEY, KEYSTORE_DIR or WATCH_ADDRESS must be set")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v\n", err)
	}

	ethClient, err := connectToEthereum(cfg.RPCURL)
	if err != nil {
		log.Fatalf("Unable to connect to Ethereum node: %v\n", err)
	}
	defer ethClient.Close()

	w, err := openWallet(cfg, ethClient)
	if err != nil {
		log.Fatalf("Unable to open wallet: %v\n", err)
	}

	gateway, err := contracts.NewGateway(cfg.FactoryAddress,
		contracts.WithGasMultiplier(cfg.GasMultiplier),
		contracts.WithReceiptPollInterval(cfg.ReceiptPollInterval),
	)
	if err != nil {
		log.Fatalf("Unable to create ledger gateway: %v\n", err)
	}

	opts := []session.ControllerOption{session.WithConcurrency(cfg.FetchConcurrency)}

	// Submission journal, optional
	var lister handlers.SubmissionLister
	if cfg.DatabaseURL != "" {
		pool, err := journal.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Unable to connect to database: %v\n", err)
		}
		defer pool.Close()

		j := journal.New(pool)
		if err := j.EnsureSchema(context.Background()); err != nil {
			log.Fatalf("Unable to prepare submission journal: %v\n", err)
		}
		opts = append(opts, session.WithRecorder(j))
		lister = j
	} else {
		log.Println("Warning: DATABASE_URL not set, submission journal disabled")
	}

	ctrl := session.NewController(gateway, ethClient, w, opts...)
	sessionHandler := handlers.NewSessionHandler(ctrl, lister, cfg.TokenAddress)

	// Setup Gin
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// API routes
	api := router.Group("/api/v1")
	sessionHandler.Register(api)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"session":   ctrl.ID().String(),
			"state":     ctrl.State().String(),
			"timestamp": time.Now().Unix(),
		})
	})

	log.Printf("Server starting on port %s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v\n", err)
	}
}
