package main

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cuemby/relkv/pkg/kvengine"
	bboltengine "github.com/cuemby/relkv/pkg/kvengine/bbolt"
	"github.com/cuemby/relkv/pkg/operator"
	"github.com/cuemby/relkv/pkg/plan"
	"github.com/cuemby/relkv/pkg/process"
	"github.com/cuemby/relkv/pkg/reqctx"
	"github.com/cuemby/relkv/pkg/resultchannel"
	"github.com/cuemby/relkv/pkg/rlog"
	"github.com/cuemby/relkv/pkg/scheduler"
	"github.com/cuemby/relkv/pkg/storagemgr"
	"github.com/cuemby/relkv/pkg/txn"
	"github.com/cuemby/relkv/pkg/writerpool"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// writeKernel puts sequentially numbered keys into storage, standing in
// for a compiled write operator's chain for this benchmark — each
// strand gets a disjoint key range so the workload fans out exactly
// like a parallel write step would.
type writeKernel struct {
	storage  kvengine.Storage
	firstKey int
	count    int
}

func (k *writeKernel) Execute(ctx *operator.Context) operator.Status {
	var keyBuf [8]byte
	val := []byte("relkv-bench")
	for i := 0; i < k.count; i++ {
		binary.BigEndian.PutUint64(keyBuf[:], uint64(k.firstKey+i))
		if status := k.storage.ContentPut(ctx.KVTx, append([]byte(nil), keyBuf[:]...), val, kvengine.PutCreateOrUpdate); status != kvengine.StatusOK {
			ctx.Err = fmt.Errorf("put key %d: status %s", k.firstKey+i, status)
			return operator.StatusCompleteWithErrors
		}
	}
	return operator.StatusComplete
}

var benchCmd = &cobra.Command{
	Use:   "bench --data-dir DIR --storage NAME --records N",
	Short: "Write synthetic records through the scheduler and writer pool",
	Long: `bench opens (or creates) a storage, fans a write workload out
across the configured worker pool as scheduler tasks each holding a
writer-pool seat, commits the underlying transaction, and reports
elapsed time and throughput.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dataDir, _ := cmd.Flags().GetString("data-dir")
		storageName, _ := cmd.Flags().GetString("storage")
		records, _ := cmd.Flags().GetInt("records")

		engine, err := bboltengine.Open(dataDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer engine.Close()

		registry := storagemgr.New()
		if _, err := registry.AddEntry(1, storageName, ""); err != nil {
			rlog.Logger.Warn().Err(err).Msg("storage entry already registered, reusing")
		}
		storage, err := engine.CreateStorage(storageName, kvengine.StorageOptions{Unique: true})
		if err != nil {
			return fmt.Errorf("create storage: %w", err)
		}

		writers := writerpool.New(cfg.DefaultPartitions)
		sched := scheduler.New(cfg, writers)
		sched.Start()
		defer sched.Stop()

		relTx := txn.New(uuid.New().String(), txn.Options{Label: "relkv-bench"})
		if err := relTx.Activate(); err != nil {
			return fmt.Errorf("activate transaction: %w", err)
		}

		kvTx, err := engine.CreateTransaction(kvengine.TransactionOptions{Label: "relkv-bench"})
		if err != nil {
			return fmt.Errorf("begin kv transaction: %w", err)
		}

		req := reqctx.New(relTx, resultchannel.New(), writers, sched, reqctx.Session{User: "relkv-bench", Client: "cli"}, cfg)
		if deadlineFlag, _ := cmd.Flags().GetDuration("deadline"); deadlineFlag > 0 {
			req.WithDeadline(time.Now().Add(deadlineFlag))
		}
		if err := req.CheckSuspensionPoint(); err != nil {
			return fmt.Errorf("request not runnable: %w", err)
		}
		rlog.Logger.Info().Str("request_id", req.ID).Msg("starting bench write workload")

		pool := process.NewTaskContextPool(0)

		strands := cfg.ThreadPoolSize
		if strands < 1 {
			strands = 1
		}
		perStrand := records / strands
		if perStrand < 1 {
			perStrand = records
			strands = 1
		}

		step := scheduler.NewStep(&plan.ProcessStep{ID: 0, Root: &plan.OperatorNode{Kind: plan.OpWrite}}, nil)
		step.Prepare()
		step.Run()

		tasks := make([]*scheduler.Task, 0, strands)
		assigned := 0
		for i := 0; i < strands; i++ {
			n := perStrand
			if i == strands-1 {
				n = records - assigned
			}
			taskCtx := pool.Acquire()
			taskCtx.Tx = relTx
			kernel := &writeKernel{storage: storage, firstKey: assigned, count: n}
			tasks = append(tasks, scheduler.NewTask(step, kernel, taskCtx, nil, kvTx, true))
			assigned += n
		}

		start := time.Now()
		sched.Submit(tasks)
		for step.State() != scheduler.StepCompleted {
			time.Sleep(time.Millisecond)
		}
		writeElapsed := time.Since(start)

		if pendingErr := relTx.PendingError(); pendingErr != nil {
			req.SetPendingError(pendingErr)
			kvTx.Abort()
			_ = relTx.RequestAbort()
			return fmt.Errorf("write workload failed: %w", pendingErr)
		}
		if err := req.CheckSuspensionPoint(); err != nil {
			kvTx.Abort()
			_ = relTx.RequestAbort()
			return fmt.Errorf("request canceled or timed out before commit: %w", err)
		}

		if err := relTx.RequestCommit(); err != nil {
			return fmt.Errorf("request commit: %w", err)
		}
		if err := relTx.OnCCCommitStarted(); err != nil {
			return fmt.Errorf("commit transition: %w", err)
		}
		if status := kvTx.Commit(kvengine.CommitOption{WaitForStored: true}, nil); status != kvengine.StatusOK {
			return fmt.Errorf("kv commit: status %s", status)
		}
		if err := relTx.OnCCCommitted(); err != nil {
			return fmt.Errorf("commit transition: %w", err)
		}
		if err := relTx.OnCCStored(); err != nil {
			return fmt.Errorf("commit transition: %w", err)
		}
		totalElapsed := time.Since(start)

		fmt.Printf("Wrote %d records across %d strand(s) into %q\n", records, strands, storageName)
		fmt.Printf("  write phase: %s (%.0f records/s)\n", writeElapsed, float64(records)/writeElapsed.Seconds())
		fmt.Printf("  including commit: %s\n", totalElapsed)
		return nil
	},
}

func init() {
	benchCmd.Flags().String("data-dir", "", "Path to the bbolt data file")
	benchCmd.Flags().String("storage", "bench_table", "Storage (table/index) name")
	benchCmd.Flags().Int("records", 10000, "Number of records to write")
	benchCmd.Flags().Duration("deadline", 0, "Abort the request if it would run past this duration (0 disables)")
	_ = benchCmd.MarkFlagRequired("data-dir")
}
