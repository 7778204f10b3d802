/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、配置加载等初始化工作
 * @architecture 分层架构 - 服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；Redis不可用时降级为空实现
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs service/database/migrate.go, service/worker/ingestion_worker.go
 */

package service

import (
	"fmt"
	"log"
	"os"
	"strings"

	"dataset-ingestion-service/client/connectors"
	"dataset-ingestion-service/service/cleanup"
	"dataset-ingestion-service/service/config"
	"dataset-ingestion-service/service/database"
	"dataset-ingestion-service/service/distributed_lock"
	"dataset-ingestion-service/service/event"
	"dataset-ingestion-service/service/models"
	"dataset-ingestion-service/service/worker"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                     *gorm.DB
	GlobalConfigService    *config.ConfigService
	GlobalEventService     *event.EventService
	GlobalFileStore        *worker.LocalFileStore
	GlobalIngestionWorker  *worker.IngestionWorker
	GlobalCleanupService   *cleanup.CleanupService
	GlobalProgressReporter worker.ProgressReporter

	// GlobalRedisReporter 进度快照查询入口，Redis不可用时为nil
	GlobalRedisReporter *worker.RedisProgressReporter

	// GlobalDatasetLock 多实例摄取防重锁，Redis不可用时为nil
	GlobalDatasetLock *distributed_lock.RedisLock

	// GlobalRedisClient 共享Redis客户端，限流中间件等复用，Redis不可用时为nil
	GlobalRedisClient *redis.Client
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	var dsn string

	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s TimeZone=Asia/Shanghai",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := database.InitializeData(DB); err != nil {
		log.Fatalf("基础数据初始化失败: %v", err)
	}
	log.Println("基础数据初始化完成")
}

// initServices 初始化服务
func initServices() {
	GlobalConfigService = config.NewConfigService(DB)
	GlobalEventService = event.NewEventService(DB)

	// 文件存储
	dataDir := getEnvWithDefault("DATA_DIR", "./data/uploads")
	tempDir := getEnvWithDefault("TEMP_DIR", os.TempDir())
	var err error
	GlobalFileStore, err = worker.NewLocalFileStore(dataDir, tempDir)
	if err != nil {
		log.Fatalf("初始化文件存储失败: %v", err)
	}

	// Redis承载进度快照和分布式锁，不可用时相关能力降级
	redisClient, err := connectors.NewRedisClient(connectors.RedisConfigFromEnv())
	if err != nil {
		log.Printf("Redis不可用，进度快照和分布式锁功能降级: %v", err)
		redisClient = nil
	} else {
		GlobalRedisClient = redisClient
		GlobalDatasetLock = distributed_lock.NewRedisLock(redisClient)
	}

	GlobalProgressReporter = initProgressReporter(redisClient)

	GlobalIngestionWorker = worker.NewIngestionWorker(DB, GlobalFileStore, GlobalProgressReporter)
	GlobalIngestionWorker.SetBatchSize(GlobalConfigService.GetBatchSize())
	if GlobalDatasetLock != nil {
		GlobalIngestionWorker.SetLock(GlobalDatasetLock)
	}

	// 清理调度
	GlobalCleanupService = cleanup.NewCleanupService(DB, GlobalConfigService, GlobalFileStore.TempDir())
	if GlobalDatasetLock != nil {
		GlobalCleanupService.SetLockExecutor(distributed_lock.NewLockExecutor(GlobalDatasetLock))
	}
	if err := GlobalCleanupService.StartScheduledCleanup(); err != nil {
		log.Printf("启动清理调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}

// initProgressReporter 组装进度上报器，按环境变量叠加Redis/Kafka/MQTT三种通道
func initProgressReporter(redisClient *redis.Client) worker.ProgressReporter {
	reporters := make([]worker.ProgressReporter, 0, 3)

	if redisClient != nil {
		GlobalRedisReporter = worker.NewRedisProgressReporter(redisClient)
		reporters = append(reporters, GlobalRedisReporter)
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConnector := connectors.NewKafkaConnector(&models.KafkaConfig{
			Brokers: strings.Split(brokers, ","),
			Topic:   getEnvWithDefault("KAFKA_EVENTS_TOPIC", "dataset-events"),
			Async:   true,
		})
		reporters = append(reporters, worker.NewPublisherProgressReporter("kafka", kafkaConnector.Publish))
	}

	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		mqttConnector, err := connectors.NewMQTTConnector(&models.MQTTConfig{
			Broker:   broker,
			ClientID: getEnvWithDefault("MQTT_CLIENT_ID", "dataset-ingestion-service"),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			QoS:      1,
		})
		if err != nil {
			log.Printf("MQTT不可用，进度转发功能降级: %v", err)
		} else {
			reporters = append(reporters, worker.NewPublisherProgressReporter("mqtt", mqttConnector.Publish))
		}
	}

	if len(reporters) == 0 {
		return worker.NoopProgressReporter{}
	}
	if len(reporters) == 1 {
		return reporters[0]
	}
	return worker.NewCompositeProgressReporter(reporters...)
}
