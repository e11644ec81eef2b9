package dbusapi

import "github.com/godbus/dbus/v5"

// Get implements org.freedesktop.DBus.Properties.Get.
func (s *Service) Get(iface, propName string) (dbus.Variant, *dbus.Error) {
	if iface != Interface {
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{"unknown interface"})
	}

	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	switch propName {
	case "WifiState":
		return dbus.MakeVariant(s.wifi.String()), nil
	case "ApState":
		return dbus.MakeVariant(s.ap.String()), nil
	case "ApInterface":
		return dbus.MakeVariant(s.apIface), nil
	case "StaApConcurrencySupported":
		return dbus.MakeVariant(s.warden.IsStaApConcurrencySupported()), nil
	default:
		return dbus.Variant{}, dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", []interface{}{"unknown property: " + propName})
	}
}

// GetAll implements org.freedesktop.DBus.Properties.GetAll.
func (s *Service) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != Interface {
		return nil, dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", []interface{}{"unknown interface"})
	}

	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	return map[string]dbus.Variant{
		"WifiState":                 dbus.MakeVariant(s.wifi.String()),
		"ApState":                   dbus.MakeVariant(s.ap.String()),
		"ApInterface":               dbus.MakeVariant(s.apIface),
		"StaApConcurrencySupported": dbus.MakeVariant(s.warden.IsStaApConcurrencySupported()),
	}, nil
}

// Set implements org.freedesktop.DBus.Properties.Set. Every exposed
// property is read-only.
func (s *Service) Set(iface, propName string, value dbus.Variant) *dbus.Error {
	return dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly", []interface{}{"properties are read-only"})
}
