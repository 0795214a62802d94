package badge

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	launcherSignal   = "com.canonical.Unity.LauncherEntry.Update"
	launcherPathBase = "/com/canonical/unity/launcherentry/"
	defaultAppURI    = "application://afterschool.desktop"
)

type emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// DBus drives the launcher badge through the Unity LauncherEntry protocol,
// which docks such as GNOME's dash-to-dock and KDE's task manager understand.
type DBus struct {
	conn   *dbus.Conn
	em     emitter
	appURI string
	path   dbus.ObjectPath
}

func NewDBus(appURI string) (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	d := newDBus(conn, appURI)
	d.conn = conn
	return d, nil
}

func newDBus(em emitter, appURI string) *DBus {
	if strings.TrimSpace(appURI) == "" {
		appURI = defaultAppURI
	}
	return &DBus{em: em, appURI: appURI, path: entryPath(appURI)}
}

func (d *DBus) Name() string { return "dbus" }

func (d *DBus) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// SetBadge hides the count when n is 0.
func (d *DBus) SetBadge(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	props := map[string]dbus.Variant{
		"count":         dbus.MakeVariant(int64(n)),
		"count-visible": dbus.MakeVariant(n > 0),
	}
	if err := d.em.Emit(d.path, launcherSignal, d.appURI, props); err != nil {
		return fmt.Errorf("emit launcher update: %w", err)
	}
	return nil
}

// entryPath derives a stable object path from the app URI.
func entryPath(appURI string) dbus.ObjectPath {
	h := fnv.New64a()
	_, _ = h.Write([]byte(appURI))
	return dbus.ObjectPath(fmt.Sprintf("%s%x", launcherPathBase, h.Sum64()))
}
