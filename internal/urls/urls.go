package urls

// EsptoolInstall covers installing esptool with pip or as a standalone binary.
const EsptoolInstall = "https://docs.espressif.com/projects/esptool/en/latest/esp32/installation.html"

// EsptoolTroubleshooting explains connection failures, boot mode and baud
// rate problems.
const EsptoolTroubleshooting = "https://docs.espressif.com/projects/esptool/en/latest/esp32/troubleshooting.html"

// MkspiffsReleases hosts prebuilt mkspiffs binaries.
const MkspiffsReleases = "https://github.com/igrr/mkspiffs/releases"

// PartitionTables documents the ESP32 partition table format.
const PartitionTables = "https://docs.espressif.com/projects/esp-idf/en/latest/esp32/api-guides/partition-tables.html"
