package defaults

import (
	"github.com/sahib/config"
)

// DefaultsV0 is the default config validation for sniffcap
var DefaultsV0 = config.DefaultMapping{
	"log": config.DefaultMapping{
		"level": config.DefaultEntry{
			Default:      "warning",
			NeedsRestart: false,
			Docs:         "Minimum level of log messages (debug, info, warning, error).",
			Validator:    enumValidator("debug", "info", "warning", "error"),
		},
		"colors": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Colorize log output if it goes to a terminal.",
		},
	},
	"reader": config.DefaultMapping{
		"random_access": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Open a second handle so records can be read again by offset.",
		},
		"infer_encap": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Guess the link layer of every frame in WAN captures that do not declare one.",
		},
	},
	"writer": config.DefaultMapping{
		"compress": config.DefaultEntry{
			Default:      false,
			NeedsRestart: false,
			Docs:         "Write compressed captures.",
		},
		"blob_size": config.DefaultEntry{
			Default:      32768,
			NeedsRestart: false,
			Docs:         "Bytes of records per compressed blob.",
			Validator:    intRangeValidator(1, 32768),
		},
		"time_unit": config.DefaultEntry{
			Default:      1,
			NeedsRestart: false,
			Docs:         "Tick length code of written timestamps (0-6, 1 is .838096 usecs).",
			Validator:    intRangeValidator(0, 6),
		},
		"major_version": config.DefaultEntry{
			Default:      4,
			NeedsRestart: false,
			Docs:         "Major version written into the version record.",
			Validator:    enumIntValidator(1, 4, 5, 7),
		},
		"wan_header": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Add a header record naming the WAN protocol of synchronous captures.",
		},
	},
	"convert": config.DefaultMapping{
		"snaplen": config.DefaultEntry{
			Default:      65535,
			NeedsRestart: false,
			Docs:         "Snapshot length written into converted pcap files.",
			Validator:    intRangeValidator(1, 262144),
		},
	},
}
