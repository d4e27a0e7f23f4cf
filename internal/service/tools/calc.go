package tools

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

func parsePositive(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, ErrUsage
	}
	return v, nil
}

// BMI computes body-mass index from weight in kg and height in cm (or m).
func BMI() Tool {
	return Tool{
		Name:        "bmi",
		Usage:       "bmi <น้ำหนัก กก.> <ส่วนสูง ซม.> เช่น bmi 70 175",
		Description: "คำนวณดัชนีมวลกาย",
		Run: func(args []string) (string, error) {
			if len(args) != 2 {
				return "", ErrUsage
			}
			weight, err := parsePositive(args[0])
			if err != nil {
				return "", err
			}
			height, err := parsePositive(args[1])
			if err != nil {
				return "", err
			}
			if height >= 3 {
				height /= 100
			}

			bmi := ComputeBMI(weight, height)
			return fmt.Sprintf("BMI = %.1f (%s)", bmi, ClassifyBMI(bmi)), nil
		},
	}
}

// ComputeBMI returns weight / height², height in metres.
func ComputeBMI(weightKg, heightM float64) float64 {
	return weightKg / (heightM * heightM)
}

// ClassifyBMI uses the Asia-Pacific cut-offs.
func ClassifyBMI(bmi float64) string {
	switch {
	case bmi < 18.5:
		return "น้ำหนักน้อย"
	case bmi < 23:
		return "ปกติ"
	case bmi < 25:
		return "น้ำหนักเกิน"
	case bmi < 30:
		return "อ้วนระดับ 1"
	default:
		return "อ้วนระดับ 2"
	}
}

// Loan computes the fixed monthly installment of an amortized loan.
func Loan() Tool {
	return Tool{
		Name:        "loan",
		Usage:       "loan <เงินต้น> <ดอกเบี้ย %/ปี> <จำนวนปี> เช่น loan 100000 5 10",
		Description: "คำนวณค่างวดผ่อนรายเดือน",
		Run: func(args []string) (string, error) {
			if len(args) != 3 {
				return "", ErrUsage
			}
			principal, err := parsePositive(args[0])
			if err != nil {
				return "", err
			}
			rate, err := strconv.ParseFloat(args[1], 64)
			if err != nil || rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
				return "", ErrUsage
			}
			years, err := parsePositive(args[2])
			if err != nil {
				return "", err
			}

			months := int(math.Round(years * 12))
			if months < 1 {
				return "", ErrUsage
			}
			payment := MonthlyPayment(principal, rate, months)
			total := payment * float64(months)
			return printer.Sprintf("ค่างวด %.2f บาท/เดือน × %d งวด (รวม %.2f บาท, ดอกเบี้ย %.2f บาท)",
				payment, months, total, total-principal), nil
		},
	}
}

// MonthlyPayment returns the installment for annualRatePct over months.
func MonthlyPayment(principal, annualRatePct float64, months int) float64 {
	r := annualRatePct / 100 / 12
	if r == 0 {
		return principal / float64(months)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(months)))
}

type unit struct {
	dimension string
	// factor converts to the dimension's base unit; temperatures use toKelvin instead.
	factor float64
}

var units = map[string]unit{
	"km": {"length", 1000},
	"m":  {"length", 1},
	"cm": {"length", 0.01},
	"mm": {"length", 0.001},
	"mi": {"length", 1609.344},
	"ft": {"length", 0.3048},
	"in": {"length", 0.0254},
	"kg": {"mass", 1},
	"g":  {"mass", 0.001},
	"lb": {"mass", 0.45359237},
	"oz": {"mass", 0.028349523125},
	"c":  {"temperature", 0},
	"f":  {"temperature", 0},
	"k":  {"temperature", 0},
}

// Convert converts between length, mass and temperature units.
func Convert() Tool {
	return Tool{
		Name:        "convert",
		Usage:       "convert <ค่า> <จากหน่วย> <เป็นหน่วย> เช่น convert 10 km mi (km m cm mm mi ft in kg g lb oz c f k)",
		Description: "แปลงหน่วย",
		Run: func(args []string) (string, error) {
			if len(args) != 3 {
				return "", ErrUsage
			}
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				return "", ErrUsage
			}
			from, to := strings.ToLower(args[1]), strings.ToLower(args[2])

			out, err := ConvertUnits(value, from, to)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s = %s %s", formatNumber(value), from, formatNumber(out), to), nil
		},
	}
}

// ConvertUnits converts value between two units of the same dimension.
func ConvertUnits(value float64, from, to string) (float64, error) {
	uf, okFrom := units[from]
	ut, okTo := units[to]
	if !okFrom || !okTo || uf.dimension != ut.dimension {
		return 0, ErrUsage
	}
	if uf.dimension == "temperature" {
		return fromKelvin(toKelvin(value, from), to), nil
	}
	return value * uf.factor / ut.factor, nil
}

func toKelvin(v float64, u string) float64 {
	switch u {
	case "c":
		return v + 273.15
	case "f":
		return (v-32)*5/9 + 273.15
	default:
		return v
	}
}

func fromKelvin(v float64, u string) float64 {
	switch u {
	case "c":
		return v - 273.15
	case "f":
		return (v-273.15)*9/5 + 32
	default:
		return v
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(math.Round(v*10000)/10000, 'f', -1, 64)
}

// QRBaseURL renders QR codes from a data query parameter.
const QRBaseURL = "https://api.qrserver.com/v1/create-qr-code/?size=300x300&data="

// QR returns an image link encoding the given text.
func QR() Tool {
	return Tool{
		Name:        "qr",
		Usage:       "qr <ข้อความหรือลิงก์> เช่น qr https://line.me",
		Description: "สร้างลิงก์รูป QR code",
		Run: func(args []string) (string, error) {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return "", ErrUsage
			}
			return "QR code: " + QRBaseURL + url.QueryEscape(text), nil
		},
	}
}
