// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"label-service/internal/model"
)

// CreateConnection creates a transport based on connection type and
// configuration. The configuration map comes from the API request or
// the service configuration file.
func CreateConnection(connectionType model.ConnectionType, config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	switch connectionType {
	case model.ConnectionTypeTCP:
		return createTCPConnection(config, logger)
	case model.ConnectionTypeSerial:
		return createSerialConnection(config, logger)
	case model.ConnectionTypeUSB:
		return createUSBConnection(config, logger)
	default:
		return nil, fmt.Errorf("unsupported connection type: %s", connectionType)
	}
}

// createTCPConnection creates a TCP transport
func createTCPConnection(config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	tcpConfig := &TCPConfig{
		// SATO LAN print servers listen on 1024.
		Port:         1024,
		KeepAlive:    true,
		Timeout:      10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	host, ok := config["host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("TCP host is required")
	}
	tcpConfig.Host = host

	if port, ok := intValue(config["port"]); ok {
		tcpConfig.Port = port
	}
	if keepAlive, ok := config["keep_alive"].(bool); ok {
		tcpConfig.KeepAlive = keepAlive
	}
	if dur, ok := durationValue(config["timeout"]); ok {
		tcpConfig.Timeout = dur
	}
	if dur, ok := durationValue(config["read_timeout"]); ok {
		tcpConfig.ReadTimeout = dur
	}
	if dur, ok := durationValue(config["write_timeout"]); ok {
		tcpConfig.WriteTimeout = dur
	}

	logger.Info("Creating TCP transport",
		zap.String("host", tcpConfig.Host),
		zap.Int("port", tcpConfig.Port),
	)

	return NewTCPConnection(tcpConfig, logger), nil
}

// createSerialConnection creates a serial transport
func createSerialConnection(config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	serialConfig := &SerialConfig{
		BaudRate: 9600,
		DataBits: 8,
		StopBits: 1,
		Parity:   "none",
		Timeout:  5 * time.Second,
	}

	port, ok := config["port"].(string)
	if !ok || port == "" {
		return nil, fmt.Errorf("serial port is required")
	}
	serialConfig.Port = port

	if baudRate, ok := intValue(config["baud_rate"]); ok {
		serialConfig.BaudRate = baudRate
	}
	if dataBits, ok := intValue(config["data_bits"]); ok {
		serialConfig.DataBits = dataBits
	}
	if stopBits, ok := intValue(config["stop_bits"]); ok {
		serialConfig.StopBits = stopBits
	}
	if parity, ok := config["parity"].(string); ok {
		serialConfig.Parity = parity
	}
	if dur, ok := durationValue(config["timeout"]); ok {
		serialConfig.Timeout = dur
	}

	logger.Info("Creating serial transport",
		zap.String("port", serialConfig.Port),
		zap.Int("baud_rate", serialConfig.BaudRate),
	)

	return NewSerialConnection(serialConfig, logger), nil
}

// createUSBConnection creates a USB transport
func createUSBConnection(config map[string]interface{}, logger *zap.Logger) (Connection, error) {
	usbConfig := &USBConfig{
		Interface: 0,
		Endpoint:  1,
		Timeout:   5 * time.Second,
	}

	vendorID, ok := config["vendor_id"].(string)
	if !ok || vendorID == "" {
		return nil, fmt.Errorf("USB vendor_id is required")
	}
	usbConfig.VendorID = vendorID

	productID, ok := config["product_id"].(string)
	if !ok || productID == "" {
		return nil, fmt.Errorf("USB product_id is required")
	}
	usbConfig.ProductID = productID

	if intf, ok := intValue(config["interface"]); ok {
		usbConfig.Interface = intf
	}
	if endpoint, ok := intValue(config["endpoint"]); ok {
		usbConfig.Endpoint = endpoint
	}
	if dur, ok := durationValue(config["timeout"]); ok {
		usbConfig.Timeout = dur
	}

	logger.Info("Creating USB transport",
		zap.String("vendor_id", usbConfig.VendorID),
		zap.String("product_id", usbConfig.ProductID),
	)

	return NewUSBConnection(usbConfig, logger), nil
}

// ValidateConfig validates configuration for a specific transport type
func ValidateConfig(connectionType model.ConnectionType, config map[string]interface{}) error {
	switch connectionType {
	case model.ConnectionTypeTCP:
		return validateTCPConfig(config)
	case model.ConnectionTypeSerial:
		return validateSerialConfig(config)
	case model.ConnectionTypeUSB:
		return validateUSBConfig(config)
	default:
		return fmt.Errorf("unsupported connection type: %s", connectionType)
	}
}

func validateTCPConfig(config map[string]interface{}) error {
	if _, ok := config["host"].(string); !ok {
		return fmt.Errorf("TCP host is required")
	}
	if raw, present := config["port"]; present {
		port, ok := intValue(raw)
		if !ok {
			return fmt.Errorf("invalid port type")
		}
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %d", port)
		}
	}
	return nil
}

func validateSerialConfig(config map[string]interface{}) error {
	if _, ok := config["port"].(string); !ok {
		return fmt.Errorf("serial port is required")
	}
	if raw, present := config["baud_rate"]; present {
		rate, ok := intValue(raw)
		if !ok {
			return fmt.Errorf("invalid baud_rate type")
		}
		validRates := []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}
		valid := false
		for _, validRate := range validRates {
			if rate == validRate {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid baud rate: %d", rate)
		}
	}
	return nil
}

func validateUSBConfig(config map[string]interface{}) error {
	if _, ok := config["vendor_id"].(string); !ok {
		return fmt.Errorf("USB vendor_id is required")
	}
	if _, ok := config["product_id"].(string); !ok {
		return fmt.Errorf("USB product_id is required")
	}
	return nil
}

// intValue reads an integer that may arrive as a JSON float64
func intValue(raw interface{}) (int, bool) {
	switch v := raw.(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// durationValue reads a Go duration string, e.g. "5s"
func durationValue(raw interface{}) (time.Duration, bool) {
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return dur, true
}
