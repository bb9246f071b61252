// Package localcache is the offline store used on the ambulance terminal when the
// backend is unreachable. It mirrors a subset of the patient lifecycle on an embedded
// BadgerDB and is never synchronized with the server-side record store.
//
// Reads never fail: missing or corrupt data yields an empty default. Writes never fail
// either: errors are logged and dropped.
package localcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

const (
	patientPrefix = "patient:"
	driverKey     = "driver:current"

	StatusPending        = "pending"
	StatusSentToHospital = "sent_to_hospital"

	unknownDriverName = "Unknown Driver"
	notAvailable      = "N/A"
)

// Config BadgerDB 配置
type Config struct {
	Path       string // InMemory 时忽略
	InMemory   bool
	SyncWrites bool
	Logger     *zap.Logger
}

// DefaultConfig 终端持久化配置
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig 测试用
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Location 经纬度
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PatientData 终端录入的病人信息
type PatientData struct {
	PatientName      string    `json:"patientName"`
	Age              *int      `json:"age,omitempty"`
	Gender           string    `json:"gender,omitempty"`
	MedicalCondition string    `json:"medicalCondition,omitempty"`
	BloodPressure    string    `json:"bloodPressure,omitempty"`
	HeartRate        *int      `json:"heartRate,omitempty"`
	OxygenSaturation *int      `json:"oxygenSaturation,omitempty"`
	Allergies        string    `json:"allergies,omitempty"`
	MedicalNeeds     []string  `json:"medicalNeeds,omitempty"`
	AdditionalNotes  string    `json:"additionalNotes,omitempty"`
	SelectedHospital string    `json:"selectedHospital,omitempty"`
	Location         *Location `json:"location,omitempty"`
}

// Record 本地病人记录，带提交时的司机信息
type Record struct {
	ID string `json:"id"`
	PatientData
	Status        string     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
	DriverName    string     `json:"driverName"`
	DriverPhone   string     `json:"driverPhone"`
	DriverEmail   string     `json:"driverEmail"`
	DriverLicense string     `json:"driverLicense"`
}

// Driver 当前登录司机
type Driver struct {
	DriverName    string `json:"driverName"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	LicenceNumber string `json:"licenceNumber"`
}

// Cache 离线缓存；调用方负责 Open/Close
type Cache struct {
	db     *badger.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open 打开缓存
func Open(cfg Config) (*Cache, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{logger.Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &Cache{db: db, logger: logger, now: time.Now}, nil
}

// Close 关闭缓存
func (c *Cache) Close() error {
	return c.db.Close()
}

// AddPatient 新增 pending 记录，附带当前司机信息，返回 id
func (c *Cache) AddPatient(data PatientData) string {
	rec := Record{
		ID:            c.newID(),
		PatientData:   data,
		Status:        StatusPending,
		Timestamp:     c.now(),
		DriverName:    unknownDriverName,
		DriverPhone:   notAvailable,
		DriverEmail:   notAvailable,
		DriverLicense: notAvailable,
	}
	if d := c.CurrentDriver(); d != nil {
		rec.DriverName = orDefault(d.DriverName, unknownDriverName)
		rec.DriverPhone = orDefault(d.Phone, notAvailable)
		rec.DriverEmail = orDefault(d.Email, notAvailable)
		rec.DriverLicense = orDefault(d.LicenceNumber, notAvailable)
	}
	c.put(patientPrefix+rec.ID, rec)
	return rec.ID
}

// UpdatePatientStatus 更新状态；reason 非空时记录。未知 id 返回 nil。
func (c *Cache) UpdatePatientStatus(id, status, reason string) *Record {
	var rec Record
	if !c.get(patientPrefix+id, &rec) {
		return nil
	}
	now := c.now()
	rec.Status = status
	rec.UpdatedAt = &now
	if reason != "" {
		rec.Reason = reason
	}
	c.put(patientPrefix+id, rec)
	return &rec
}

// Patients 全部记录，按录入时间升序
func (c *Cache) Patients() []Record {
	out := []Record{}
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(patientPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec Record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				c.logger.Warn("Skipping unreadable cached patient",
					zap.ByteString("key", item.Key()),
					zap.Error(err),
				)
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		c.logger.Error("Error loading patients", zap.Error(err))
		return []Record{}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// PendingPatients pending 或 sent_to_hospital
func (c *Cache) PendingPatients() []Record {
	all := c.Patients()
	out := make([]Record, 0, len(all))
	for _, r := range all {
		if r.Status == StatusPending || r.Status == StatusSentToHospital {
			out = append(out, r)
		}
	}
	return out
}

// SetCurrentDriver 保存当前司机
func (c *Cache) SetCurrentDriver(d Driver) {
	c.put(driverKey, d)
}

// CurrentDriver 未设置或读取失败返回 nil
func (c *Cache) CurrentDriver() *Driver {
	var d Driver
	if !c.get(driverKey, &d) {
		return nil
	}
	return &d
}

// ClearCurrentDriver 退出登录
func (c *Cache) ClearCurrentDriver() {
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(driverKey))
	}); err != nil {
		c.logger.Error("Error clearing driver data", zap.Error(err))
	}
}

// ClearAll 删除全部病人记录与当前司机
func (c *Cache) ClearAll() {
	for _, prefix := range [][]byte{[]byte(patientPrefix), []byte(driverKey)} {
		if err := c.db.DropPrefix(prefix); err != nil {
			c.logger.Error("Error clearing cache", zap.ByteString("prefix", prefix), zap.Error(err))
		}
	}
}

// get 读取并解码；不存在或损坏返回 false
func (c *Cache) get(key string, out any) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if err == nil {
		return true
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		c.logger.Warn("Error reading cache entry", zap.String("key", key), zap.Error(err))
	}
	return false
}

// put 写失败只记录日志
func (c *Cache) put(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Error encoding cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), b)
	}); err != nil {
		c.logger.Error("Error saving cache entry", zap.String("key", key), zap.Error(err))
	}
}

// newID patient_<unix毫秒>_<9 位 base36 随机串>
func (c *Cache) newID() string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return "patient_" + strconv.FormatInt(c.now().UnixMilli(), 10) + "_" + string(suffix)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// badgerLogger 把 badger 日志接到 zap
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...any)    { l.s.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...any)   { l.s.Debugf(format, args...) }
