package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hookrelay/internal/client"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage registered webhook services",
}

var createServiceCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new webhook service",
	Run: func(cmd *cobra.Command, args []string) {
		req, err := serviceRequestFromFlags(cmd)
		exitOnError(err)

		svc, err := apiClient(cmd).CreateService(cmd.Context(), req)
		exitOnError(err)

		fmt.Printf("Created service %d (%s)\n", svc.ID, svc.Name)
	},
}

var listServicesCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered webhook services",
	Run: func(cmd *cobra.Command, args []string) {
		services, err := apiClient(cmd).ListServices(cmd.Context())
		exitOnError(err)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tENDPOINT\tTYPE\tACTIVE\tEVENTS")
		for _, svc := range services {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n",
				svc.ID, svc.Name, svc.Endpoint, svc.ContentType, svc.Status,
				strings.Join(svc.Events, ","))
		}
		w.Flush()
	},
}

var getServiceCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one webhook service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		exitOnError(err)

		svc, err := apiClient(cmd).GetService(cmd.Context(), id)
		exitOnError(err)

		fmt.Printf("ID:           %d\n", svc.ID)
		fmt.Printf("Name:         %s\n", svc.Name)
		fmt.Printf("Endpoint:     %s\n", svc.Endpoint)
		fmt.Printf("Content-Type: %s\n", svc.ContentType)
		fmt.Printf("Active:       %t\n", svc.Status)
		if svc.Token != "" {
			fmt.Printf("Token:        %s\n", svc.Token)
		}
		fmt.Printf("Events:       %s\n", strings.Join(svc.Events, ", "))
	},
}

var updateServiceCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace a webhook service definition",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		exitOnError(err)

		req, err := serviceRequestFromFlags(cmd)
		exitOnError(err)

		svc, err := apiClient(cmd).UpdateService(cmd.Context(), id, req)
		exitOnError(err)

		fmt.Printf("Updated service %d (%s)\n", svc.ID, svc.Name)
	},
}

var deleteServiceCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a webhook service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		exitOnError(err)

		exitOnError(apiClient(cmd).DeleteService(cmd.Context(), id))
		fmt.Printf("Deleted service %d\n", id)
	},
}

func serviceRequestFromFlags(cmd *cobra.Command) (*client.ServiceRequest, error) {
	name, _ := cmd.Flags().GetString("name")
	endpoint, _ := cmd.Flags().GetString("endpoint")
	contentType, _ := cmd.Flags().GetString("content-type")
	token, _ := cmd.Flags().GetString("token")
	events, _ := cmd.Flags().GetStringSlice("events")
	inactive, _ := cmd.Flags().GetBool("inactive")

	if name == "" {
		return nil, fmt.Errorf("--name is required")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("--endpoint is required")
	}

	status := !inactive
	return &client.ServiceRequest{
		Name:        name,
		Endpoint:    endpoint,
		ContentType: contentType,
		Status:      &status,
		Token:       token,
		Events:      events,
	}, nil
}

func addServiceFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "service name")
	cmd.Flags().String("endpoint", "", "endpoint URL notifications are POSTed to")
	cmd.Flags().String("content-type", "application/json", "payload encoding: application/json or application/x-www-form-urlencoded")
	cmd.Flags().String("token", "", "shared-secret token injected into the payload")
	cmd.Flags().StringSlice("events", nil, "subscribed event names")
	cmd.Flags().Bool("inactive", false, "register the service as inactive")
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.AddCommand(createServiceCmd)
	serviceCmd.AddCommand(listServicesCmd)
	serviceCmd.AddCommand(getServiceCmd)
	serviceCmd.AddCommand(updateServiceCmd)
	serviceCmd.AddCommand(deleteServiceCmd)

	addServiceFlags(createServiceCmd)
	addServiceFlags(updateServiceCmd)
}
