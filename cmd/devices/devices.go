package devices

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartsecurity/cli/internal/app"
	"github.com/smartsecurity/cli/internal/format"
	"github.com/smartsecurity/cli/internal/models"
	"github.com/smartsecurity/cli/internal/utils"
)

// DevicesCmd represents the devices command
var DevicesCmd = &cobra.Command{
	Use:     "devices",
	Aliases: []string{"device"},
	Short:   "Device management commands",
	Long: `Device management commands for SmartSecurity CLI.

List, register, rename and remove sensors, silence a ringing alarm and
choose how each device reacts to motion.`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List devices",
	Long:  "List every device linked to the account with its local mode",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var getCmd = &cobra.Command{
	Use:   "get <id|mac>",
	Short: "Show one device",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var registerCmd = &cobra.Command{
	Use:   "register <mac>",
	Short: "Link a provisioned device to the account",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegister,
}

var renameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a device",
	Args:  cobra.ExactArgs(2),
	RunE:  runRename,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Unlink a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var disarmCmd = &cobra.Command{
	Use:   "disarm <mac>",
	Short: "Silence the alarm of a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runDisarm,
}

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Get or set the motion mode of a device",
}

var modeGetCmd = &cobra.Command{
	Use:   "get <mac>",
	Short: "Show the mode of a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runModeGet,
}

var modeSetCmd = &cobra.Command{
	Use:   "set <mac> <automatic|disabled|active>",
	Short: "Change the mode of a device",
	Args:  cobra.ExactArgs(2),
	RunE:  runModeSet,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	devices, err := a.Client.ListDevices(cmd.Context())
	if err != nil {
		return err
	}
	return format.Print(format.DeviceList{Devices: devices, Modes: a.Modes.All()})
}

func runGet(cmd *cobra.Command, args []string) error {
	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	var device *models.Device
	if id, convErr := strconv.Atoi(args[0]); convErr == nil {
		device, err = a.Client.GetDevice(cmd.Context(), id)
	} else {
		mac, macErr := utils.NormalizeMAC(args[0])
		if macErr != nil {
			return macErr
		}
		device, err = a.Client.GetDeviceByMAC(cmd.Context(), mac)
	}
	if err != nil {
		return err
	}

	return format.Print(format.DeviceList{
		Devices: []models.Device{*device},
		Modes:   map[string]models.DeviceMode{device.MacAddress: a.Modes.Get(device.MacAddress)},
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	mac, err := utils.NormalizeMAC(args[0])
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")

	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	device, err := a.Client.RegisterDevice(cmd.Context(), models.RegisterDeviceRequest{
		MacAddress: mac,
		Name:       strings.TrimSpace(name),
	})
	if err != nil {
		return err
	}

	format.PrintSuccess("✓ Registered %s (id %d)", device.DisplayName(), device.ID)
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	id, err := deviceID(args[0])
	if err != nil {
		return err
	}
	name := strings.TrimSpace(args[1])
	if err := utils.ValidateRequired(name, "name"); err != nil {
		return err
	}

	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	device, err := a.Client.UpdateDevice(cmd.Context(), id, models.UpdateDeviceRequest{Name: &name})
	if err != nil {
		return err
	}

	format.PrintSuccess("✓ Device %d renamed to %s", device.ID, device.DisplayName())
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := deviceID(args[0])
	if err != nil {
		return err
	}

	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	device, err := a.Client.GetDevice(cmd.Context(), id)
	if err != nil {
		return err
	}
	if err := a.Client.DeleteDevice(cmd.Context(), id); err != nil {
		return err
	}
	if err := a.Modes.Clear(device.MacAddress); err != nil {
		format.PrintWarning("could not forget local mode of %s: %v", device.MacAddress, err)
	}

	format.PrintSuccess("✓ Device %d deleted", id)
	return nil
}

func runDisarm(cmd *cobra.Command, args []string) error {
	mac, err := utils.NormalizeMAC(args[0])
	if err != nil {
		return err
	}

	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	res, err := a.Client.DeactivateAlarm(cmd.Context(), mac)
	if err != nil {
		return err
	}

	msg := res.Message
	if msg == "" {
		msg = "alarm deactivated"
	}
	format.PrintSuccess("✓ %s: %s", mac, msg)
	return nil
}

func runModeGet(cmd *cobra.Command, args []string) error {
	mac, err := utils.NormalizeMAC(args[0])
	if err != nil {
		return err
	}

	a, err := app.Load()
	if err != nil {
		return err
	}

	return format.Print(format.KeyValues{
		"mac":  mac,
		"mode": string(a.Modes.Get(mac)),
	})
}

func runModeSet(cmd *cobra.Command, args []string) error {
	mac, err := utils.NormalizeMAC(args[0])
	if err != nil {
		return err
	}
	mode, err := models.ParseDeviceMode(args[1])
	if err != nil {
		return utils.NewValidationError("mode", err.Error())
	}

	a, err := app.LoggedIn(cmd.Context())
	if err != nil {
		return err
	}

	if _, err := a.Client.UpdateDeviceMode(cmd.Context(), mac, mode); err != nil {
		return err
	}
	if err := a.Modes.Set(mac, mode); err != nil {
		return fmt.Errorf("mode applied on the server but not saved locally: %w", err)
	}

	format.PrintSuccess("✓ %s is now %s", mac, mode)
	return nil
}

func deviceID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, utils.NewValidationError("id", "must be a positive number")
	}
	return id, nil
}

func init() {
	registerCmd.Flags().StringP("name", "n", "", "Device name")

	modeCmd.AddCommand(modeGetCmd)
	modeCmd.AddCommand(modeSetCmd)

	DevicesCmd.AddCommand(listCmd)
	DevicesCmd.AddCommand(getCmd)
	DevicesCmd.AddCommand(registerCmd)
	DevicesCmd.AddCommand(renameCmd)
	DevicesCmd.AddCommand(deleteCmd)
	DevicesCmd.AddCommand(disarmCmd)
	DevicesCmd.AddCommand(modeCmd)
}
