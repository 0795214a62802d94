package presenter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"afterschool/internal/watcher"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = dbus.ObjectPath("/org/freedesktop/Notifications")
	notifyMethod = "org.freedesktop.Notifications.Notify"

	hintPrefix = "x-afterschool-"
)

// notifyCaller is the part of dbus.BusObject the driver uses.
type notifyCaller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// DBus shows desktop notifications through the freedesktop notification
// service on the session bus.
type DBus struct {
	conn    *dbus.Conn
	obj     notifyCaller
	appName string
	icon    string
	expire  int32
}

// NewDBus opens a private session bus connection.
func NewDBus(cfg Config) (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	d := newDBus(conn.Object(notifyDest, notifyPath), cfg)
	d.conn = conn
	return d, nil
}

func newDBus(obj notifyCaller, cfg Config) *DBus {
	expire := int32(-1)
	if cfg.ExpireMS > 0 {
		expire = int32(cfg.ExpireMS)
	}
	return &DBus{obj: obj, appName: cfg.AppName, icon: cfg.Icon, expire: expire}
}

func (d *DBus) Name() string { return "dbus" }

func (d *DBus) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Present calls Notify and discards the returned notification id.
func (d *DBus) Present(ctx context.Context, p watcher.Presentation) error {
	call := d.obj.CallWithContext(ctx, notifyMethod, 0,
		d.appName,
		uint32(0), // replaces_id
		d.icon,
		p.Title,
		p.Body,
		[]string{}, // actions
		Hints(p),
		d.expire,
	)
	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// Hints maps the presentation routing fields to notification hints.
// The channel becomes the standard "category" hint; everything else uses
// x-afterschool-* vendor hints.
func Hints(p watcher.Presentation) map[string]dbus.Variant {
	h := map[string]dbus.Variant{
		"urgency":         dbus.MakeVariant(urgency(p.Priority)),
		hintPrefix + "id": dbus.MakeVariant(p.Data.NotificationID),
	}
	if p.Channel != "" {
		h["category"] = dbus.MakeVariant(p.Channel)
	}
	if p.Data.Type != "" {
		h[hintPrefix+"type"] = dbus.MakeVariant(p.Data.Type)
	}
	if len(p.Data.Data) > 0 {
		if b, err := json.Marshal(p.Data.Data); err == nil {
			h[hintPrefix+"data"] = dbus.MakeVariant(string(b))
		}
	}
	return h
}

// urgency maps priority to freedesktop urgency: 0 low, 1 normal, 2 critical.
func urgency(priority string) byte {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "low":
		return 0
	case "high", "urgent", "critical":
		return 2
	default:
		return 1
	}
}
