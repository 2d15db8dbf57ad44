package bacnet

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-bacnet/internal/bacnet"
	"github.com/nerrad567/gray-logic-bacnet/internal/infrastructure/mqtt"
)

// defaultWritePriority is the lowest BACnet command priority, used when a
// command does not name one.
const defaultWritePriority = 16

// CommandSubscriber is the MQTT subscription surface the bridge needs for
// inbound commands.
type CommandSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// commandMessage is the payload accepted on the bridge command topic.
// Property defaults to presentValue; Priority defaults to the lowest
// command priority.
type commandMessage struct {
	Property string `json:"property,omitempty"`
	Value    any    `json:"value"`
	Priority uint8  `json:"priority,omitempty"`
}

// ackMessage reports the submission outcome on the ack topic. Accepted
// means the write was handed to the protocol stack, not that the device
// applied it; the applied value arrives through COV or the next poll.
type ackMessage struct {
	DeviceID  string    `json:"device_id"`
	ObjectID  string    `json:"object_id"`
	Property  string    `json:"property"`
	Accepted  bool      `json:"accepted"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SubscribeCommands attaches the bridge to its MQTT command topic:
// graylogic/command/bacnet/{device}/{object}.
func (b *Bridge) SubscribeCommands(sub CommandSubscriber) error {
	return sub.Subscribe(b.topics.BridgeCommands("bacnet"), 1, b.handleCommand)
}

// handleCommand parses one command message and submits the property write.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	deviceID, objectID, err := parseCommandTopic(topic)
	if err != nil {
		b.logger.Warn("ignoring malformed command topic", "topic", topic, "error", err.Error())
		return err
	}

	var msg commandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("ignoring malformed command payload",
			"topic", topic,
			"error", err.Error())
		b.publishAck(deviceID, objectID, bacnet.PropPresentValue, fmt.Errorf("malformed payload: %w", err))
		return err
	}

	prop := bacnet.PropPresentValue
	if msg.Property != "" {
		p, ok := bacnet.PropertyFromName(msg.Property)
		if !ok {
			err := fmt.Errorf("unknown property %q", msg.Property)
			b.publishAck(deviceID, objectID, prop, err)
			return err
		}
		prop = p
	}

	priority := msg.Priority
	if priority == 0 {
		priority = defaultWritePriority
	}

	addr, err := b.registry.LookupAddress(deviceID)
	if err != nil {
		b.logger.Warn("command for unknown device",
			"device", deviceID.String(),
			"object", objectID.String())
		b.publishAck(deviceID, objectID, prop, err)
		return err
	}

	if err := b.Write(objectID, prop, msg.Value, priority, addr); err != nil {
		b.publishAck(deviceID, objectID, prop, err)
		return err
	}

	b.publishAck(deviceID, objectID, prop, nil)
	return nil
}

// parseCommandTopic extracts device and object ids from a command topic.
func parseCommandTopic(topic string) (deviceID, objectID bacnet.ObjectID, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 {
		return deviceID, objectID, fmt.Errorf("%w: topic %q", ErrRequestConstruction, topic)
	}

	deviceID, err = bacnet.ParseObjectID(parts[3])
	if err != nil {
		return deviceID, objectID, err
	}
	objectID, err = bacnet.ParseObjectID(parts[4])
	return deviceID, objectID, err
}

// publishAck emits the command submission outcome.
func (b *Bridge) publishAck(deviceID, objectID bacnet.ObjectID, prop bacnet.PropertyID, cmdErr error) {
	if b.publisher == nil {
		return
	}

	msg := ackMessage{
		DeviceID:  deviceID.String(),
		ObjectID:  objectID.String(),
		Property:  prop.String(),
		Accepted:  cmdErr == nil,
		Timestamp: time.Now().UTC(),
	}
	if cmdErr != nil {
		msg.Error = cmdErr.Error()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal ack", "error", err.Error())
		return
	}

	topic := b.topics.BridgeAck("bacnet", deviceID.String()+"/"+objectID.String())
	if err := b.publisher.Publish(topic, payload, 1, false); err != nil {
		b.logger.Error("failed to publish ack", "topic", topic, "error", err.Error())
	}
}
