package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/store"
)

var (
	campaignProfession string
	campaignCity       string
	campaignMax        int
	campaignMode       string

	importCampaignID string

	scheduleCampaignID string
	scheduleLimit      int
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage prospecting campaigns",
}

var campaignCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a campaign for a profession/city pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		mode := model.CampaignMode(strings.ToUpper(campaignMode))
		switch mode {
		case model.ModeDryRun, model.ModeAutoTest, model.ModeSendReady:
		default:
			return eris.Errorf("unknown campaign mode: %s", campaignMode)
		}

		c, err := env.Store.CreateCampaign(ctx, model.Campaign{
			Profession:   campaignProfession,
			City:         campaignCity,
			MaxProspects: campaignMax,
			Mode:         mode,
		})
		if err != nil {
			return err
		}

		fmt.Printf("campaign created: %s (%s / %s, mode %s)\n", c.ID, c.Profession, c.City, c.Mode)
		return nil
	},
}

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		campaigns, err := env.Store.ListCampaigns(ctx)
		if err != nil {
			return err
		}
		for _, c := range campaigns {
			fmt.Printf("%s  %-14s %-12s mode=%s max=%d\n", c.ID, c.Profession, c.City, c.Mode, c.MaxProspects)
		}
		return nil
	},
}

var campaignImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import scanned prospects from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		campaign, err := env.Store.GetCampaign(ctx, importCampaignID)
		if err != nil {
			return err
		}

		prospects, err := readProspectsCSV(args[0], campaign)
		if err != nil {
			return err
		}

		n, err := env.Store.CreateProspects(ctx, prospects)
		if err != nil {
			return err
		}

		zap.L().Info("prospects imported",
			zap.String("campaign", campaign.ID),
			zap.Int("parsed", len(prospects)),
			zap.Int64("written", n),
		)
		fmt.Printf("imported %d prospects into campaign %s\n", len(prospects), campaign.ID)
		return nil
	},
}

var campaignScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Move scanned prospects into the test queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := scheduleProspects(ctx, env.Store, scheduleCampaignID, scheduleLimit)
		if err != nil {
			return err
		}

		fmt.Printf("scheduled %d prospects\n", n)
		return nil
	},
}

// scheduleProspects advances up to limit SCANNED prospects to SCHEDULED.
func scheduleProspects(ctx context.Context, st store.Store, campaignID string, limit int) (int, error) {
	prospects, err := st.ListProspects(ctx, store.ProspectFilter{
		CampaignID: campaignID,
		Status:     model.StatusScanned,
		Limit:      limit,
	})
	if err != nil {
		return 0, err
	}

	scheduled := 0
	for _, p := range prospects {
		if err := st.TransitionProspect(ctx, p.ID, model.StatusScanned, model.StatusScheduled); err != nil {
			return scheduled, err
		}
		scheduled++
	}
	return scheduled, nil
}

// readProspectsCSV parses a scan export. The header row maps columns by
// name; only "name" is required.
func readProspectsCSV(path string, campaign *model.Campaign) ([]model.Prospect, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}
	if len(records) < 2 {
		return nil, eris.Errorf("%s: no data rows", path)
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, eris.Errorf("%s: missing required column: name", path)
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var prospects []model.Prospect
	for _, row := range records[1:] {
		name := field(row, "name")
		if name == "" {
			continue
		}

		city := field(row, "city")
		if city == "" {
			city = campaign.City
		}
		profession := field(row, "profession")
		if profession == "" {
			profession = campaign.Profession
		}

		reviews, _ := strconv.Atoi(field(row, "reviews_count"))

		prospects = append(prospects, model.Prospect{
			CampaignID:   campaign.ID,
			Name:         name,
			City:         city,
			Profession:   profession,
			Website:      field(row, "website"),
			Phone:        field(row, "phone"),
			ReviewsCount: reviews,
			AdsActive:    parseBool(field(row, "ads_active")),
			Status:       model.StatusScanned,
		})
	}
	return prospects, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "oui":
		return true
	}
	return false
}

func init() {
	campaignCreateCmd.Flags().StringVar(&campaignProfession, "profession", "", "target profession (required)")
	campaignCreateCmd.Flags().StringVar(&campaignCity, "city", "", "target city (required)")
	campaignCreateCmd.Flags().IntVar(&campaignMax, "max", 50, "max prospects per test batch")
	campaignCreateCmd.Flags().StringVar(&campaignMode, "mode", "DRY_RUN", "campaign mode: DRY_RUN, AUTO_TEST or SEND_READY")
	_ = campaignCreateCmd.MarkFlagRequired("profession")
	_ = campaignCreateCmd.MarkFlagRequired("city")

	campaignImportCmd.Flags().StringVar(&importCampaignID, "campaign", "", "campaign id (required)")
	_ = campaignImportCmd.MarkFlagRequired("campaign")

	campaignScheduleCmd.Flags().StringVar(&scheduleCampaignID, "campaign", "", "campaign id (required)")
	campaignScheduleCmd.Flags().IntVar(&scheduleLimit, "limit", 100, "max prospects to schedule")
	_ = campaignScheduleCmd.MarkFlagRequired("campaign")

	campaignCmd.AddCommand(campaignCreateCmd, campaignListCmd, campaignImportCmd, campaignScheduleCmd)
	rootCmd.AddCommand(campaignCmd)
}
