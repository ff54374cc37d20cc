package excel

import (
	"covidsql/internal/frame"
)

const excelizeModule = "github.com/xuri/excelize/v2"

func init() {
	frame.Register(".csv", CSVFormat{})
	frame.Register(".xlsx", WorkbookFormat{})
}
