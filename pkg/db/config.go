package db

// Config carries connection settings for the backing database. Pool values
// of zero fall back to the defaults in ProvideDB.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	FilePath        string // sqlite only
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int // seconds
	ConnMaxIdleTime int // seconds
}
