package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"mediroute-data/common/logger"
	commonmqtt "mediroute-data/common/mqtt"
	"mediroute-data/internal/config"
	"mediroute-data/internal/domain"
	"mediroute-data/internal/localcache"
	"mediroute-data/internal/mqtt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli 终端离线工具；cache 为 nil 时按配置打开 BadgerDB
type cli struct {
	cfg    *config.Config
	log    *zap.Logger
	cache  *localcache.Cache
	opened bool
}

func newRootCmd(cache *localcache.Cache) (*cobra.Command, *cli) {
	c := &cli{cache: cache, log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "mediroute-offline",
		Short:         "Ambulance-side offline patient cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.setup()
		},
	}

	root.AddCommand(
		c.addCmd(),
		c.listCmd(),
		c.pendingCmd(),
		c.statusCmd(),
		c.driverCmd(),
		c.clearCmd(),
		c.watchCmd(),
	)
	return root, c
}

func (c *cli) setup() error {
	if c.cache != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg
	if l, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "mediroute-offline"); err == nil {
		c.log = l
	}
	cacheCfg := localcache.DefaultConfig(cfg.OfflineDir)
	cacheCfg.Logger = c.log
	cache, err := localcache.Open(cacheCfg)
	if err != nil {
		return err
	}
	c.cache = cache
	c.opened = true
	return nil
}

// teardown 关闭自己打开的 cache；可重复调用
func (c *cli) teardown() error {
	_ = c.log.Sync()
	if !c.opened {
		return nil
	}
	c.opened = false
	return c.cache.Close()
}

func (c *cli) addCmd() *cobra.Command {
	var (
		data            patientFlags
		age, hr, oxygen int
		lat, lng        float64
	)
	cmd := &cobra.Command{
		Use:   "add <patient-name>",
		Short: "Record a patient locally (status pending)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pd := data.toPatientData(args[0])
			if cmd.Flags().Changed("age") {
				pd.Age = &age
			}
			if cmd.Flags().Changed("heart-rate") {
				pd.HeartRate = &hr
			}
			if cmd.Flags().Changed("oxygen") {
				pd.OxygenSaturation = &oxygen
			}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				pd.Location = &localcache.Location{Latitude: lat, Longitude: lng}
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.cache.AddPatient(pd))
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&age, "age", 0, "patient age")
	f.StringVar(&data.Gender, "gender", "", "gender")
	f.StringVar(&data.Condition, "condition", "", "medical condition")
	f.StringVar(&data.BloodPressure, "bp", "", "blood pressure")
	f.IntVar(&hr, "heart-rate", 0, "heart rate")
	f.IntVar(&oxygen, "oxygen", 0, "oxygen saturation")
	f.StringVar(&data.Allergies, "allergies", "", "allergies")
	f.StringSliceVar(&data.Needs, "need", nil, "medical need (repeatable)")
	f.StringVar(&data.Notes, "notes", "", "additional notes")
	f.StringVar(&data.Hospital, "hospital", "", "selected hospital")
	f.Float64Var(&lat, "lat", 0, "latitude")
	f.Float64Var(&lng, "lng", 0, "longitude")
	return cmd
}

// patientFlags add 命令的字符串参数
type patientFlags struct {
	Gender        string
	Condition     string
	BloodPressure string
	Allergies     string
	Needs         []string
	Notes         string
	Hospital      string
}

func (d patientFlags) toPatientData(name string) localcache.PatientData {
	return localcache.PatientData{
		PatientName:      name,
		Gender:           d.Gender,
		MedicalCondition: d.Condition,
		BloodPressure:    d.BloodPressure,
		Allergies:        d.Allergies,
		MedicalNeeds:     d.Needs,
		AdditionalNotes:  d.Notes,
		SelectedHospital: d.Hospital,
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all locally recorded patients (oldest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), c.cache.Patients())
		},
	}
}

func (c *cli) pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List patients still awaiting a hospital decision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), c.cache.PendingPatients())
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Update a local patient's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := c.cache.UpdatePatientStatus(args[0], args[1], reason)
			if rec == nil {
				return fmt.Errorf("patient %q not found", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "decline reason")
	return cmd
}

func (c *cli) driverCmd() *cobra.Command {
	driver := &cobra.Command{
		Use:   "driver",
		Short: "Manage the driver signed in on this device",
	}

	var d localcache.Driver
	set := &cobra.Command{
		Use:   "set <email>",
		Short: "Remember the signed-in driver",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Email = domain.NormalizeEmail(args[0])
			c.cache.SetCurrentDriver(d)
			fmt.Fprintln(cmd.OutOrStdout(), "driver set:", d.Email)
			return nil
		},
	}
	set.Flags().StringVar(&d.DriverName, "name", "", "driver name")
	set.Flags().StringVar(&d.Phone, "phone", "", "driver phone")
	set.Flags().StringVar(&d.LicenceNumber, "licence", "", "licence number")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the signed-in driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur := c.cache.CurrentDriver()
			if cur == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no driver signed in")
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), cur)
		},
	}

	forget := &cobra.Command{
		Use:   "clear",
		Short: "Forget the signed-in driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.cache.ClearCurrentDriver()
			return nil
		},
	}

	driver.AddCommand(set, show, forget)
	return driver
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all local patients and the signed-in driver",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.cache.ClearAll()
			return nil
		},
	}
}

// watchCmd 订阅司机的 MQTT 通知主题，直到收到退出信号
func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [email]",
		Short: "Print admission decisions pushed to a driver over MQTT",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := ""
			if len(args) == 1 {
				email = args[0]
			} else if cur := c.cache.CurrentDriver(); cur != nil {
				email = cur.Email
			}
			email = domain.NormalizeEmail(email)
			if email == "" {
				return errors.New("no driver email given and no driver signed in")
			}
			if c.cfg == nil {
				return errors.New("watch requires broker configuration")
			}

			mqttCfg := c.cfg.MQTT.MQTTConfig
			mqttCfg.ClientID = "mediroute-offline-" + strconv.Itoa(os.Getpid())
			client, err := commonmqtt.NewClient(&mqttCfg, c.log)
			if err != nil {
				return err
			}
			defer client.Disconnect()

			out := cmd.OutOrStdout()
			topic := mqtt.TopicFor(mqtt.TopicPrefix(c.cfg.MQTT.TopicPrefix), email)
			err = client.Subscribe(topic, client.QoS(), func(_ string, payload []byte) error {
				n, err := mqtt.DecodeNotification(payload)
				if err != nil {
					return err
				}
				line := fmt.Sprintf("[%s] %s: %s (%s)", n.CreatedAt.Format("15:04:05"), n.PatientName, n.Message, n.HospitalName)
				if n.Reason != nil {
					line += " reason: " + *n.Reason
				}
				fmt.Fprintln(out, line)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "watching", topic)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
