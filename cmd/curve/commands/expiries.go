package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/goldcurve/internal/contracts"
	"github.com/wonny/goldcurve/internal/curveconfig"
	"github.com/wonny/goldcurve/internal/external/mcx"
	"github.com/wonny/goldcurve/pkg/httputil"
	"github.com/wonny/goldcurve/pkg/redis"
)

// expiriesCmd represents the expiries command
var expiriesCmd = &cobra.Command{
	Use:   "expiries",
	Short: "MCX 페이지에서 만기 목록 조회",
	Long: `MCX bhavcopy 페이지의 만기 드롭다운을 파싱해 설정 파일과 비교합니다.
설정에 없는 만기는 YAML expiries 목록에 추가할 후보입니다.

REDIS_ENABLED=true 이면 결과를 하루 동안 캐시합니다.`,
	RunE: runExpiries,
}

var expiriesRefresh bool

func init() {
	rootCmd.AddCommand(expiriesCmd)
	expiriesCmd.Flags().BoolVar(&expiriesRefresh, "refresh", false, "캐시 무시하고 다시 조회")
}

func runExpiries(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	rc, err := newRedis(a)
	if err != nil {
		return err
	}
	defer rc.Close()
	cache := redis.NewCache(rc, "goldcurve").WithLogger(a.log)
	key := redis.ExpiryListKey(a.domain.Instrument.Symbol)

	if expiriesRefresh {
		_ = cache.Delete(ctx, key)
	}

	var tags []string
	err = cache.GetOrSet(ctx, key, &tags, redis.TTLDaily, func() (interface{}, error) {
		found, err := discoverExpiries(ctx, a)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(found))
		for _, e := range found {
			out = append(out, contracts.FormatExpiry(e))
		}
		return out, nil
	})
	if err != nil {
		return fmt.Errorf("discover expiries: %w", err)
	}

	configured := make(map[time.Time]bool)
	for _, e := range a.domain.ExpiryDates() {
		configured[e] = true
	}

	var discovered, unknown []time.Time
	for _, tag := range tags {
		e, err := curveconfig.ParseExpiryTag(tag)
		if err != nil {
			continue
		}
		discovered = append(discovered, e)
		if !configured[e] {
			unknown = append(unknown, e)
		}
	}

	fmt.Println()
	PrintKeyValue("Discovered", fmt.Sprintf("%d", len(discovered)), 10)
	PrintKeyValue("Configured", fmt.Sprintf("%d", len(configured)), 10)
	fmt.Println()
	PrintList(FormatExpiries(discovered, 8))

	if len(unknown) > 0 {
		PrintWarning(fmt.Sprintf("%d expiries are not in the domain config:", len(unknown)))
		PrintList(FormatExpiries(unknown, 8))
	} else {
		fmt.Println()
		PrintSuccess("Domain config lists every discovered expiry")
	}
	return nil
}

func discoverExpiries(ctx context.Context, a *app) ([]time.Time, error) {
	retry := httputil.RetryFromConfig(a.cfg.MCX)
	hc := httputil.NewWithPolicy(a.log, a.cfg.MCX.Timeout, retry)
	client := mcx.NewClient(hc, a.cfg.MCX.BaseURL, a.domain.Instrument.InstrumentName, a.log)
	return client.FetchExpiries(ctx)
}
