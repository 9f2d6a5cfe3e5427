package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	JWTKey    string
	SaltRound int

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	AlgodURL   string // Algorand node REST endpoint
	AlgodToken string
	KmdURL     string // Key management daemon REST endpoint
	KmdToken   string

	DefaultWalletName     string // KMD wallet that funds new accounts
	DefaultWalletPassword string
	FundingAmount         uint64 // microAlgos sent to low-balance accounts
	LedgerTimeoutSeconds  int

	PinataJWT     string
	PinataURL     string
	PinataGateway string

	CertTemplateURL string // background artwork for rendered certificates
	AcademyLogoPath string

	EmailSender string
	Password    string // SMTP Password
}

// AppConfig is a global variable to access configuration
var AppConfig *Config

// LoadConfig initializes configuration from environment variables or defaults
func LoadConfig() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Using system environment variables.")
	}

	AppConfig = &Config{
		Port:      getEnv("PORT", "3000"),
		JWTKey:    getEnv("JWT_SECRET_KEY", "defaultSecret"),
		SaltRound: getEnvInt("SALT_ROUND", 10),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "tenx_db"),
		DBPort:     getEnv("DB_PORT", "5432"),

		AlgodURL:   getEnv("ALGOD_URL", "http://localhost:4001"),
		AlgodToken: getEnv("ALGOD_TOKEN", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		KmdURL:     getEnv("KMD_URL", "http://localhost:4002"),
		KmdToken:   getEnv("KMD_TOKEN", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),

		DefaultWalletName:     getEnv("KMD_DEFAULT_WALLET", "unencrypted-default-wallet"),
		DefaultWalletPassword: getEnv("KMD_DEFAULT_WALLET_PASSWORD", ""),
		FundingAmount:         uint64(getEnvInt("FUNDING_AMOUNT", 1000000)),
		LedgerTimeoutSeconds:  getEnvInt("LEDGER_TIMEOUT_SECONDS", 30),

		PinataJWT:     getEnv("PINATA_JWT", ""),
		PinataURL:     getEnv("PINATA_URL", "https://api.pinata.cloud/pinning/pinFileToIPFS"),
		PinataGateway: getEnv("PINATA_GATEWAY", "https://gateway.pinata.cloud/ipfs"),

		CertTemplateURL: getEnv("CERT_TEMPLATE_URL", "https://res.cloudinary.com/dv9se1fwu/image/upload/v1705084396/ykinhidb5xum6lsl6l5z.png"),
		AcademyLogoPath: getEnv("ACADEMY_LOGO_PATH", "./images/10x_logo.png"),

		EmailSender: getEnv("EMAIL_SENDER", ""),
		Password:    getEnv("PASSWORD", ""),
	}

	// Validate critical configuration
	if AppConfig.JWTKey == "defaultSecret" {
		log.Println("Warning: Using default JWT_SECRET_KEY. Update it in your environment.")
	}
	if AppConfig.PinataJWT == "" {
		log.Println("Warning: PINATA_JWT is not set. Certificate uploads will fail.")
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt retrieves an environment variable as an integer or returns the default integer value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Error converting environment variable %s to int: %v", key, err)
		return defaultValue
	}
	return intValue
}
