package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Obyedullah7/Advanced-Backend/internal/media"
	"github.com/Obyedullah7/Advanced-Backend/internal/router"
	"github.com/Obyedullah7/Advanced-Backend/internal/session"
	"github.com/Obyedullah7/Advanced-Backend/internal/user"
	userrepo "github.com/Obyedullah7/Advanced-Backend/internal/user/repo"
	"github.com/Obyedullah7/Advanced-Backend/pkg/database"
	"github.com/Obyedullah7/Advanced-Backend/pkg/utilities"
)

func main() {
	// best-effort: real env wins when no .env exists
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting advanced-backend api")

	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("database config: %v", err)
	}
	db, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := userrepo.NewUserRepo(db)
	if err := users.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}

	sessCfg, err := session.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("%v", err)
	}
	mediaCfg, err := media.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("%v", err)
	}
	uploader, err := media.NewS3Uploader(ctx, mediaCfg, sugar.Named("media"))
	if err != nil {
		sugar.Fatalf("media uploader: %v", err)
	}
	httpCfg, err := router.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("%v", err)
	}

	hasher := user.BcryptHasher{Cost: 12}
	mgr := session.NewManager(users, session.NewSigner(sessCfg), hasher, sugar.Named("session"),
		session.WithStrictRotation(sessCfg.StrictRotation))
	cookies := session.NewCookieWriter(sessCfg)
	svc := user.NewUserService(users, mgr, hasher, uploader, sugar.Named("user"))

	handler := router.RegisterRoutes(httpCfg, router.Deps{
		Users:    user.NewHandler(svc, cookies, mediaCfg.UploadDir, sugar),
		Sessions: session.NewHandler(mgr, cookies, sugar),
		Manager:  mgr,
	}, sugar)
	srv := &http.Server{
		Addr:              httpCfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sugar.Infow("http server listening", "addr", httpCfg.Addr, "strict_rotation", sessCfg.StrictRotation)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
