package application

import (
	"io/fs"
	"math"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lk2023060901/bufferio-go/pkg/buffer/binary"
	zlog "github.com/lk2023060901/bufferio-go/pkg/log"
	"github.com/lk2023060901/bufferio-go/pkg/metrics"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
	zviper "github.com/lk2023060901/bufferio-go/pkg/util/viper"
)

const (
	defaultConfigPath = "./bufferio.yaml"
	configPathEnv     = "BUFFERIO_CONFIG_FILE_PATH"

	keyLog             = "log"
	keyLogging         = "logging"
	keyBufferMaxLength = "buffer.maxLength"
)

// Application 是 bufferio 命令行的运行时容器，负责加载配置、
// 初始化日志与指标，并把配置转换为读写器选项。
type Application struct {
	args    []string
	cfg     *zviper.Config
	loggers map[string]*zlog.MLogger

	maxLength uint32
}

// New 创建 Application，args 通常为 os.Args[1:]。
func New(args []string) *Application {
	return &Application{args: args, maxLength: binary.MaxLength}
}

// Run 解析 --config 参数并加载配置文件，配置文件路径的优先级为：
//  1. 默认：./bufferio.yaml（不存在时只使用默认值）
//  2. 环境变量：BUFFERIO_CONFIG_FILE_PATH
//  3. 命令行：--config <path> 或 --config=<path>
func (a *Application) Run() error {
	path, explicit, rest, err := resolveConfigPath(a.args)
	if err != nil {
		return err
	}
	a.args = rest

	cfg, err := loadConfig(path, explicit)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}
	a.initBuffer()
	metrics.Register(prometheus.DefaultRegisterer)

	zlog.Debug("application started",
		zap.String("config", path),
		zap.Uint32("maxLength", a.maxLength))
	return nil
}

// Args 返回去除 --config 之后的剩余参数。
func (a *Application) Args() []string {
	return a.args
}

// Config 返回已加载的配置。
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// BufferOptions 返回按配置构造的 Writer / Reader 选项。
func (a *Application) BufferOptions(module string) []binary.Option {
	return []binary.Option{
		binary.WithMaxLength(a.maxLength),
		binary.WithLogger(a.Logger(module)),
	}
}

// Logger 返回配置中 logging.<name> 对应的 Logger，未配置时退回到全局 Logger。
func (a *Application) Logger(name string) *zlog.MLogger {
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return zlog.With(zlog.FieldModule(name))
}

func resolveConfigPath(args []string) (path string, explicit bool, rest []string, err error) {
	path = defaultConfigPath
	if envPath := strings.TrimSpace(os.Getenv(configPathEnv)); envPath != "" {
		path, explicit = envPath, true
	}

	rest = make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return "", false, nil, merr.WrapErrParameterMissing("--config", "missing value after --config")
			}
			path, explicit = args[i+1], true
			i++
			continue
		}
		if val, ok := strings.CutPrefix(arg, "--config="); ok {
			if val != "" {
				path, explicit = val, true
			}
			continue
		}
		rest = append(rest, arg)
	}
	return path, explicit, rest, nil
}

// loadConfig 加载配置文件；只有默认路径允许不存在。
func loadConfig(path string, explicit bool) (*zviper.Config, error) {
	cfg := zviper.New()
	cfg.SetDefault(keyBufferMaxLength, uint64(binary.MaxLength))

	if _, err := os.Stat(path); !explicit && errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err := cfg.LoadFile(path); err != nil {
		return nil, merr.WrapErrConfigLoadFailed(path, err)
	}
	return cfg, nil
}

// initLogging 根据 log 节点初始化全局 Logger，并根据 logging 节点创建模块 Logger。
//
// 示例：
//
//	log:
//	  level: debug
//	  stdout: true
//	logging:
//	  decode:
//	    level: warn
//	    file:
//	      rootPath: ./logs
//	      filename: decode.log
func (a *Application) initLogging() error {
	var global zlog.Config
	if err := a.cfg.UnmarshalKey(keyLog, &global); err != nil {
		return merr.WrapErrConfigLoadFailed(keyLog, err)
	}
	if global.Level == "" {
		global.Level = "info"
	}
	logger, props, err := zlog.InitLogger(&global)
	if err != nil {
		return errors.Wrap(err, "init global logger")
	}
	zlog.ReplaceGlobals(logger, props)

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey(keyLogging, &raw); err != nil {
		return merr.WrapErrConfigLoadFailed(keyLogging, err)
	}
	if len(raw) == 0 {
		return nil
	}
	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		lg, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return errors.Wrapf(err, "init module logger %q", name)
		}
		a.loggers[name] = &zlog.MLogger{Logger: lg.With(zlog.FieldModule(name))}
	}
	return nil
}

// initBuffer 读取 buffer.maxLength，0 或超出 u32 范围时使用默认上限。
func (a *Application) initBuffer() {
	n := a.cfg.GetInt(keyBufferMaxLength)
	switch {
	case n <= 0 || uint64(n) > math.MaxUint32:
		a.maxLength = binary.MaxLength
	default:
		a.maxLength = uint32(n)
	}
}
