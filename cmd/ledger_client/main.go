package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/logger"
	grpcpkg "github.com/JoeShih716/go-bank-ledger/pkg/grpc"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "ledger server address")
	mode := flag.String("mode", "load", "load | interest")
	total := flag.Int("n", 10000, "number of transfers")
	concurrency := flag.Int("concurrency", 100, "concurrent requests")
	flag.Parse()

	if err := logger.Initialize("info", true); err != nil {
		panic(err)
	}
	defer logger.Sync()

	pool := grpcpkg.NewPool(grpcpkg.WithInterceptor(grpcpkg.LoggingClientInterceptor(logger.Log)))
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		logger.Log.Fatalw("did not connect", "addr", *addr, "error", err)
	}
	c := grpc_adapter.NewClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	switch *mode {
	case "interest":
		runInterest(ctx, c)
	default:
		runLoad(ctx, c, *total, *concurrency)
	}
}

// runLoad 開兩個帳戶後雙向並發轉帳，最後確認總額守恆並稽核兩邊帳本
func runLoad(ctx context.Context, c *grpc_adapter.Client, total, concurrency int) {
	owner := "load-" + uuid.NewString()[:8]
	a, err := c.OpenAccount(ctx, &grpc_adapter.OpenAccountRequest{OwnerID: owner, Kind: "Savings", InitialDeposit: "100000.00"})
	if err != nil {
		logger.Log.Fatalw("open account failed", "error", err)
	}
	b, err := c.OpenAccount(ctx, &grpc_adapter.OpenAccountRequest{OwnerID: owner, Kind: "Checking", InitialDeposit: "100000.00"})
	if err != nil {
		logger.Log.Fatalw("open account failed", "error", err)
	}
	ids := [2]int64{a.Account.ID, b.Account.ID}

	var wg sync.WaitGroup
	var failed atomic.Int64
	sem := make(chan struct{}, concurrency)
	startTime := time.Now()

	for i := 0; i < total; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := c.Transfer(ctx, &grpc_adapter.TransferRequest{
				SourceID: ids[idx%2],
				TargetID: ids[(idx+1)%2],
				Amount:   "1.25",
				Note:     fmt.Sprintf("load #%d", idx),
			})
			if err != nil {
				failed.Add(1)
				if idx%1000 == 0 {
					logger.Log.Warnw("transfer failed", "idx", idx, "error", err)
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	sum := decimal.Zero
	for _, id := range ids {
		bal, err := c.GetBalance(ctx, &grpc_adapter.AccountRequest{AccountID: id})
		if err != nil {
			logger.Log.Fatalw("get balance failed", "account_id", id, "error", err)
		}
		sum = sum.Add(decimal.RequireFromString(bal.Balance))

		audit, err := c.Audit(ctx, &grpc_adapter.AccountRequest{AccountID: id})
		if err != nil {
			logger.Log.Fatalw("audit failed", "account_id", id, "error", err)
		}
		fmt.Printf("account %d: balance %s, %d entries\n", id, audit.Balance, audit.Entries)
	}

	fmt.Printf("Completed %d transfers (%d failed) in %v\n", total, failed.Load(), elapsed)
	fmt.Printf("TPS: %.2f\n", float64(total)/elapsed.Seconds())
	if !sum.Equal(decimal.RequireFromString("200000.00")) {
		logger.Log.Fatalw("money was not conserved", "sum", sum.StringFixed(2))
	}
	fmt.Println("Total conserved: 200000.00")
}

func runInterest(ctx context.Context, c *grpc_adapter.Client) {
	resp, err := c.ApplyInterestAll(ctx, &grpc_adapter.ApplyInterestAllRequest{})
	if err != nil {
		logger.Log.Fatalw("apply interest failed", "error", err)
	}
	for _, r := range resp.Results {
		if r.Error != "" {
			fmt.Printf("%s (id %d): error %s\n", r.Number, r.AccountID, r.Error)
			continue
		}
		fmt.Printf("%s (id %d): +%s\n", r.Number, r.AccountID, r.Amount)
	}
	fmt.Printf("Applied interest to %d accounts\n", len(resp.Results))
}
