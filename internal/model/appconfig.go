package model

type AppConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Mtime int64  `json:"mtime"`
}

// The fixed clinic configuration key set. Unset keys are represented
// as absent, never as an error.
const (
	ConfigKeyBillingPhone      = "billing_phone"
	ConfigKeySchedulingLink    = "scheduling_link"
	ConfigKeyClinicDescription = "clinic_description"
	ConfigKeyWhatToBring       = "what_to_bring"
	ConfigKeyEmergencyGuidance = "emergency_guidance"
)

var AppConfigKeys = []string{
	ConfigKeyBillingPhone,
	ConfigKeySchedulingLink,
	ConfigKeyClinicDescription,
	ConfigKeyWhatToBring,
	ConfigKeyEmergencyGuidance,
}

func IsAppConfigKey(key string) bool {
	for _, k := range AppConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}
