package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"CaseScanner/internal/domain"
	"CaseScanner/internal/ports"
	"CaseScanner/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notifications",
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a notification with its activities and documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the distinct notification types",
	RunE:  runTypes,
}

var (
	listStatus  string
	listType    string
	listCase    string
	listOrderBy string
	listAsc     bool
	listPage    int
	listPerPage int
)

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending, processed, processed_in_test, archived, error)")
	listCmd.Flags().StringVar(&listType, "type", "", "Filter by notification type")
	listCmd.Flags().StringVar(&listCase, "case", "", "Filter by NPJ (YYYY/NNN-VVV)")
	listCmd.Flags().StringVar(&listOrderBy, "order-by", "created_at", "Sort column (id, case_id, created_at, notification_date, notification_type, status)")
	listCmd.Flags().BoolVar(&listAsc, "asc", false, "Sort ascending")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listPerPage, "per-page", 20, "Rows per page")
}

func runList(cmd *cobra.Command, args []string) error {
	filter := ports.NotificationFilter{
		Status:    domain.Status(listStatus),
		Type:      listType,
		OrderBy:   listOrderBy,
		Ascending: listAsc,
		Page:      listPage,
		PerPage:   listPerPage,
	}
	if listCase != "" {
		caseID, err := domain.ParseCaseID(listCase)
		if err != nil {
			return err
		}
		filter.CaseID = caseID
	}

	application, _, err := openApp(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	defer application.Close()

	items, total, err := application.Archiver().Page(cmd.Context(), filter)
	if err != nil {
		return err
	}
	report.WriteNotifications(cmd.OutOrStdout(), items, total)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	application, _, err := openApp(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	defer application.Close()

	n, err := application.Archiver().Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	report.WriteNotificationDetail(cmd.OutOrStdout(), n)
	return nil
}

func runTypes(cmd *cobra.Command, args []string) error {
	application, _, err := openApp(cmd.Context(), loadConfig())
	if err != nil {
		return err
	}
	defer application.Close()

	types, err := application.Archiver().Types(cmd.Context())
	if err != nil {
		return err
	}
	report.WriteTypes(cmd.OutOrStdout(), types)
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid notification id %q", raw)
	}
	return id, nil
}
