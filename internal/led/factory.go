package led

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const deviceTreeModelPath = "/proc/device-tree/model"

// Output drivers.
const (
	DriverAuto  = "auto"
	DriverGPIO  = "gpio"
	DriverSysfs = "sysfs"
	DriverNoop  = "noop"
)

// BankConfig describes the physical outputs, fixed for the process lifetime.
type BankConfig struct {
	Driver     string
	Pins       []int    // BCM pin numbers, gpio driver
	SysfsNames []string // entries under /sys/class/leds, sysfs driver
	Logger     *slog.Logger
}

// New creates the LED bank for cfg and switches every output off.
// The auto driver uses GPIO on a Raspberry Pi and falls back to the no-op
// driver elsewhere.
func New(cfg BankConfig) (*Bank, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	driver := cfg.Driver
	if driver == "" || driver == DriverAuto {
		driver = resolveDriver(detectBoard(), logger)
	}

	var outputs []Output
	var err error
	switch driver {
	case DriverGPIO:
		outputs, err = openGPIOPins(cfg.Pins)
	case DriverSysfs:
		outputs, err = openSysfs(sysfsLEDPath, cfg.SysfsNames)
	case DriverNoop:
		outputs = make([]Output, len(cfg.Pins))
		for i := range outputs {
			outputs[i] = newNoop(i, logger)
		}
	default:
		return nil, NewError(ErrCodeUnsupportedBoard, fmt.Sprintf("unknown LED driver %q", driver), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s outputs: %w", driver, err)
	}

	bank := NewBank(outputs...)
	if err := bank.AllOff(); err != nil {
		return nil, fmt.Errorf("failed to switch LEDs off at startup: %w", err)
	}

	logger.Info("LED bank ready", "driver", driver, "count", bank.Len())
	return bank, nil
}

// DetectDriver reports the driver the auto setting selects on this machine,
// along with the board model it was derived from.
func DetectDriver(logger *slog.Logger) (driver, board string) {
	if logger == nil {
		logger = slog.Default()
	}
	board = detectBoard()
	return resolveDriver(board, logger), board
}

// resolveDriver picks the output driver for a board model.
func resolveDriver(boardModel string, logger *slog.Logger) string {
	logger.Info("Detecting board for LED control", "board_model", boardModel)

	switch {
	case strings.Contains(boardModel, "Raspberry Pi"):
		logger.Info("Detected Raspberry Pi, using GPIO LED driver")
		return DriverGPIO
	default:
		logger.Info("No GPIO support detected, using no-op LED driver", "board_model", boardModel)
		return DriverNoop
	}
}

func openSysfs(root string, names []string) ([]Output, error) {
	outputs := make([]Output, 0, len(names))
	for _, name := range names {
		out, err := newSysfs(root, name)
		if err != nil {
			return nil, errors.Join(err, closeOutputs(outputs))
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// detectBoard reads the device tree model to identify the board.
func detectBoard() string {
	data, err := os.ReadFile(deviceTreeModelPath)
	if err != nil {
		return "unknown"
	}

	// Device tree model contains null bytes, trim them
	model := strings.TrimRight(string(data), "\x00")
	return model
}
