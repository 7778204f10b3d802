/*
 * @module service/event_service
 * @description 事件管理服务，提供SSE事件推送和数据集变更通知监听功能
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 数据库通知监听 -> 事件分发 -> 客户端推送
 * @rules 推送是尽力而为的，客户端队列满时丢弃事件
 * @dependencies dataset-ingestion-service/service/models, gorm.io/gorm, github.com/lib/pq
 * @refs service/worker/ingestion_worker.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"dataset-ingestion-service/service/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// DatasetEventsChannel 数据集变更通知所用的PostgreSQL通知频道
const DatasetEventsChannel = "dataset_events"

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// EventService 事件管理服务
type EventService struct {
	db          *gorm.DB
	connections map[string]map[string]*SSEClient // userName -> connectionID -> client
	mu          sync.RWMutex
	dbListener  *pq.Listener
	ctx         context.Context
	cancel      context.CancelFunc
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserName string
	Channel  chan *models.SSEEvent
	Done     chan bool
	ClientIP string
}

// NewEventService 创建事件服务实例
func NewEventService(db *gorm.DB) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		db:          db,
		connections: make(map[string]map[string]*SSEClient),
		ctx:         ctx,
		cancel:      cancel,
	}

	// PostgreSQL之外的数据库（如测试用sqlite）不启动监听器
	if db.Dialector.Name() == "postgres" {
		go service.startDBListener()
	}

	// 启动连接清理器
	go service.startConnectionCleaner()

	return service
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (s *EventService) AddSSEConnection(userName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[userName] == nil {
		s.connections[userName] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		UserName: userName,
		Channel:  make(chan *models.SSEEvent, 100), // 缓冲100个事件
		Done:     make(chan bool),
		ClientIP: clientIP,
	}

	s.connections[userName][connectionID] = client

	// 记录连接到数据库
	connection := &models.SSEConnection{
		UserName:     userName,
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		ConnectedAt:  time.Now(),
		IsActive:     true,
	}
	s.db.Create(connection)

	log.Printf("SSE连接已建立: 用户=%s, 连接ID=%s, IP=%s", userName, connectionID, clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *EventService) RemoveSSEConnection(userName, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userConnections, exists := s.connections[userName]; exists {
		if client, exists := userConnections[connectionID]; exists {
			close(client.Done)
			delete(userConnections, connectionID)

			if len(userConnections) == 0 {
				delete(s.connections, userName)
			}

			// 更新数据库连接状态
			s.db.Model(&models.SSEConnection{}).
				Where("connection_id = ?", connectionID).
				Update("is_active", false)

			log.Printf("SSE连接已断开: 用户=%s, 连接ID=%s", userName, connectionID)
		}
	}
}

// SendEventToUser 向指定用户发送事件
func (s *EventService) SendEventToUser(userName string, event *models.SSEEvent) error {
	s.mu.RLock()
	userConnections, exists := s.connections[userName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("用户 %s 没有活跃的SSE连接", userName)
	}

	// 保存事件到数据库
	if err := s.db.Create(event).Error; err != nil {
		log.Printf("保存SSE事件失败: %v", err)
		return err
	}

	for _, client := range userConnections {
		select {
		case client.Channel <- event:
		default:
			log.Printf("用户 %s 的连接 %s 事件队列已满，跳过发送", userName, client.ID)
		}
	}

	return nil
}

// BroadcastEvent 广播事件给所有用户
func (s *EventService) BroadcastEvent(event *models.SSEEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// 保存事件到数据库
	if err := s.db.Create(event).Error; err != nil {
		log.Printf("保存广播事件失败: %v", err)
		return err
	}

	for userName, userConnections := range s.connections {
		for _, client := range userConnections {
			eventCopy := *event
			eventCopy.UserName = userName

			select {
			case client.Channel <- &eventCopy:
			default:
				log.Printf("用户 %s 的连接 %s 事件队列已满，跳过广播", userName, client.ID)
			}
		}
	}

	return nil
}

// GetSSEConnectionList 分页查询SSE连接记录
func (s *EventService) GetSSEConnectionList(page, size int, userName, clientIP string, isActive *bool) ([]models.SSEConnection, int64, error) {
	query := s.db.Model(&models.SSEConnection{})
	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if clientIP != "" {
		query = query.Where("client_ip = ?", clientIP)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var connections []models.SSEConnection
	err := query.Order("connected_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&connections).Error
	return connections, total, err
}

// GetEventHistoryList 分页查询事件历史
func (s *EventService) GetEventHistoryList(page, size int, userName, eventType string) ([]models.SSEEvent, int64, error) {
	query := s.db.Model(&models.SSEEvent{})
	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var events []models.SSEEvent
	err := query.Order("created_at DESC").
		Offset((page - 1) * size).Limit(size).
		Find(&events).Error
	return events, total, err
}

// === 数据库监听实现 ===

// startDBListener 启动数据库监听器
func (s *EventService) startDBListener() {
	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "postgres")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

		connStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}

	s.dbListener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("PostgreSQL监听器事件: %v, 错误: %v", ev, err)
		}
	})

	if err := s.dbListener.Listen(DatasetEventsChannel); err != nil {
		log.Printf("监听数据库通知失败: %v", err)
		return
	}

	log.Println("数据集事件监听器已启动")

	for {
		select {
		case notification := <-s.dbListener.Notify:
			if notification != nil {
				s.handleDatasetNotification(notification)
			}
		case <-s.ctx.Done():
			log.Println("数据集事件监听器已停止")
			return
		}
	}
}

// handleDatasetNotification 处理数据集变更通知，广播给所有SSE客户端
func (s *EventService) handleDatasetNotification(notification *pq.Notification) {
	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(notification.Extra), &payload); err != nil {
		log.Printf("解析数据集通知失败: %v", err)
		return
	}

	eventType, _ := payload["type"].(string)
	if eventType == "" {
		eventType = "dataset_update"
	}

	event := &models.SSEEvent{
		EventType: eventType,
		Data:      models.JSONB(payload),
		CreatedAt: time.Now(),
	}

	if err := s.BroadcastEvent(event); err != nil {
		log.Printf("广播数据集事件失败: %v", err)
	}
}

// startConnectionCleaner 定期清理已断开的连接
func (s *EventService) startConnectionCleaner() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupInactiveConnections()
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupInactiveConnections 清理不活跃的连接
func (s *EventService) cleanupInactiveConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userName, userConnections := range s.connections {
		for connectionID, client := range userConnections {
			select {
			case <-client.Done:
				delete(userConnections, connectionID)
				log.Printf("清理已断开的连接: 用户=%s, 连接ID=%s", userName, connectionID)
			default:
				// 连接仍然活跃
			}
		}

		if len(userConnections) == 0 {
			delete(s.connections, userName)
		}
	}
}

// Stop 停止事件服务
func (s *EventService) Stop() {
	s.cancel()

	if s.dbListener != nil {
		s.dbListener.Close()
	}

	s.mu.Lock()
	for _, userConnections := range s.connections {
		for _, client := range userConnections {
			close(client.Done)
		}
	}
	s.connections = make(map[string]map[string]*SSEClient)
	s.mu.Unlock()

	log.Println("事件服务已停止")
}
