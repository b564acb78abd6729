package migration

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// CLI 把迁移结果格式化输出到终端，供 claritycast migrate 使用
type CLI struct {
	migrator Migrator
	output   io.Writer
}

// NewCLI 默认输出到 stdout
func NewCLI(migrator Migrator) *CLI {
	return &CLI{migrator: migrator, output: os.Stdout}
}

// SetOutput 替换输出目标
func (c *CLI) SetOutput(w io.Writer) {
	c.output = w
}

// RunUp 应用全部待执行迁移；已是最新时不触碰数据库
func (c *CLI) RunUp(ctx context.Context) error {
	before, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	if before.PendingMigrations == 0 && !before.Dirty {
		fmt.Fprintf(c.output, "Cache schema is up to date (version %d).\n", before.CurrentVersion)
		return nil
	}

	fmt.Fprintf(c.output, "Applying %d migration(s)...\n", before.PendingMigrations)
	if err := c.migrator.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return c.summary(ctx, "Migrations complete")
}

// RunDown 回滚最近一次迁移
func (c *CLI) RunDown(ctx context.Context) error {
	version, _, err := c.migrator.Version(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintln(c.output, "Nothing to roll back.")
		return nil
	}

	fmt.Fprintf(c.output, "Rolling back version %d...\n", version)
	if err := c.migrator.Down(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return c.summary(ctx, "Rollback complete")
}

// RunVersion 打印当前版本
func (c *CLI) RunVersion(ctx context.Context) error {
	version, dirty, err := c.migrator.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	switch {
	case version == 0:
		fmt.Fprintln(c.output, "No migrations applied yet.")
	case dirty:
		fmt.Fprintf(c.output, "Current version: %d (dirty, fix manually before migrating again)\n", version)
	default:
		fmt.Fprintf(c.output, "Current version: %d\n", version)
	}
	return nil
}

// RunStatus 列出每个内嵌迁移的状态
func (c *CLI) RunStatus(ctx context.Context) error {
	statuses, err := c.migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		fmt.Fprintln(c.output, "No migrations found.")
		return nil
	}

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tNAME\tSTATE")
	for _, s := range statuses {
		fmt.Fprintf(w, "%06d\t%s\t%s\n", s.Version, s.Name, s.State())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return c.summary(ctx, "")
}

func (c *CLI) summary(ctx context.Context, headline string) error {
	info, err := c.migrator.Info(ctx)
	if err != nil {
		return err
	}
	if headline != "" {
		fmt.Fprintf(c.output, "%s. Current version: %d\n", headline, info.CurrentVersion)
	} else {
		fmt.Fprintln(c.output)
	}
	fmt.Fprintf(c.output, "Applied %d of %d, %d pending\n",
		info.AppliedMigrations, info.TotalMigrations, info.PendingMigrations)
	return nil
}
