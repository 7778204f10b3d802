/*
 * @module service/ingestion/parser
 * @description 表格文件解析器，支持 CSV/TSV/JSON/JSONL/XLSX/TXT，自动检测字符编码、分隔符和表头
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/ingestion_requirements.md
 * @stateFlow 格式识别 -> 编码检测 -> 分隔符检测 -> 表头识别 -> 逐行装载内存表
 * @rules 解析错误是确定性错误不可重试；超出大小限制的文件直接拒绝
 * @dependencies golang.org/x/text/encoding, github.com/spf13/cast, archive/zip, encoding/csv, encoding/xml
 * @refs service/models/table.go, service/ingestion/type_inference.go
 */

package ingestion

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"dataset-ingestion-service/service/models"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// DefaultMaxFileSize 默认文件大小上限 500MB
	DefaultMaxFileSize = 500 * 1024 * 1024

	// 分隔符检测采样行数
	delimiterSampleLines = 20
)

// 识别为空值的字面量（不区分大小写）
var nullTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "null": true, "none": true, "nan": true, "-": true,
}

// Parser 文件解析器
type Parser struct {
	maxFileSize int64
}

// NewParser 创建解析器，大小上限从 MAX_FILE_SIZE 环境变量读取
func NewParser() *Parser {
	maxSize := int64(DefaultMaxFileSize)
	if val := os.Getenv("MAX_FILE_SIZE"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil && parsed > 0 {
			maxSize = parsed
		}
	}
	return &Parser{maxFileSize: maxSize}
}

// DetectFormat 根据扩展名识别文件格式
func (p *Parser) DetectFormat(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return "csv", nil
	case ".tsv", ".tab":
		return "tsv", nil
	case ".json":
		return "json", nil
	case ".jsonl", ".ndjson":
		return "jsonl", nil
	case ".xlsx":
		return "xlsx", nil
	case ".txt":
		return "txt", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ValidateFile 快速校验文件是否可摄取：存在、非空、格式受支持、头部可解析
func (p *Parser) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}
	if info.Size() == 0 {
		return ErrEmptyFile
	}
	if info.Size() > p.maxFileSize {
		return fmt.Errorf("%w: %d 字节", ErrFileTooLarge, info.Size())
	}
	if _, err := p.DetectFormat(path); err != nil {
		return err
	}
	// 只解析前几行，确认文件头部结构正常
	if _, err := p.Preview(path, 5); err != nil {
		return err
	}
	return nil
}

// ParseFile 解析整个文件为内存表
func (p *Parser) ParseFile(path string) (*models.ParseResult, error) {
	return p.parse(path, 0)
}

// Preview 解析文件前 n 行
func (p *Parser) Preview(path string, n int) (*models.ParseResult, error) {
	if n <= 0 {
		n = 10
	}
	return p.parse(path, n)
}

// parse 解析入口，limit 为 0 时解析全部数据行
func (p *Parser) parse(path string, limit int) (*models.ParseResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}
	if info.Size() > p.maxFileSize {
		return nil, fmt.Errorf("%w: %d 字节超过上限 %d", ErrFileTooLarge, info.Size(), p.maxFileSize)
	}

	format, err := p.DetectFormat(path)
	if err != nil {
		return nil, err
	}

	var result *models.ParseResult
	switch format {
	case "csv", "tsv", "txt":
		result, err = p.parseDelimited(path, format, limit)
	case "json":
		result, err = p.parseJSON(path, limit)
	case "jsonl":
		result, err = p.parseJSONL(path, limit)
	case "xlsx":
		result, err = p.parseXLSX(path, "", limit)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	if result.Table.RowCount() == 0 && limit == 0 {
		return nil, ErrEmptyFile
	}

	result.Format = format
	result.RowCount = result.Table.RowCount()
	result.ColCount = result.Table.ColumnCount()
	slog.Debug("文件解析完成", "path", path, "format", format,
		"rows", result.RowCount, "columns", result.ColCount, "encoding", result.Encoding)
	return result, nil
}

// parseDelimited 解析分隔文本文件
func (p *Parser) parseDelimited(path, format string, limit int) (*models.ParseResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyFile
	}

	text, encodingName, err := decodeBytes(raw)
	if err != nil {
		return nil, err
	}

	result := &models.ParseResult{Encoding: encodingName}

	var delimiter rune
	if format == "tsv" {
		delimiter = '\t'
	} else {
		var warning string
		delimiter, warning, err = detectDelimiter(text)
		if err != nil {
			return nil, err
		}
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
	}
	result.Delimiter = string(delimiter)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rawRows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行读取失败: %v", ErrCorruptedFile, len(rawRows)+1, err)
		}
		// 跳过完全空行
		empty := true
		for _, field := range record {
			if strings.TrimSpace(field) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		rawRows = append(rawRows, record)
		if limit > 0 && len(rawRows) > limit {
			break
		}
	}

	if len(rawRows) == 0 {
		return nil, ErrEmptyFile
	}

	header, hasHeader := detectHeader(rawRows)
	result.HasHeader = hasHeader

	table := models.NewTable(header)
	dataRows := rawRows
	if hasHeader {
		dataRows = rawRows[1:]
	}
	if limit > 0 && len(dataRows) > limit {
		dataRows = dataRows[:limit]
	}
	for _, record := range dataRows {
		row := make([]models.CellValue, len(record))
		for i, field := range record {
			row[i] = parseRawCell(field)
		}
		table.AppendRow(row)
	}
	result.Table = table
	return result, nil
}

// parseRawCell 将原始字符串转为单元格值，空值字面量转为 Null
func parseRawCell(raw string) models.CellValue {
	trimmed := strings.TrimSpace(raw)
	if nullTokens[strings.ToLower(trimmed)] {
		return models.NullCell()
	}
	return models.StringCell(trimmed)
}

// decodeBytes 检测字符编码并解码为 UTF-8 文本
// 顺序: BOM -> UTF-8 校验 -> GB18030 -> Latin-1 兜底
func decodeBytes(raw []byte) (string, string, error) {
	// UTF-8 BOM
	if bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		return string(raw[3:]), "utf-8-sig", nil
	}
	// UTF-16 BOM
	if bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, raw)
		if err != nil {
			return "", "", fmt.Errorf("%w: UTF-16 解码失败: %v", ErrEncodingDetection, err)
		}
		return string(decoded), "utf-16", nil
	}
	if utf8.Valid(raw) {
		return string(raw), "utf-8", nil
	}
	// GB18030 兼容 GBK/GB2312
	decoder := simplifiedchinese.GB18030.NewDecoder()
	if decoded, _, err := transform.Bytes(decoder, raw); err == nil && utf8.Valid(decoded) {
		return string(decoded), "gb18030", nil
	}
	// Latin-1 对任意字节序列都能解码
	decoded, _, err := transform.Bytes(charmap.ISO8859_1.NewDecoder(), raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrEncodingDetection, err)
	}
	return string(decoded), "latin-1", nil
}

// detectDelimiter 在候选分隔符中选出字段数最一致的一个
// 无法判断时回落到逗号并附带警告
func detectDelimiter(text string) (rune, string, error) {
	lines := sampleLines(text, delimiterSampleLines)
	candidates := []rune{',', '\t', ';', '|'}

	bestDelim := rune(0)
	bestScore := 0.0
	for _, cand := range candidates {
		counts := make(map[int]int)
		total := 0
		for _, line := range lines {
			reader := csv.NewReader(strings.NewReader(line))
			reader.Comma = cand
			reader.FieldsPerRecord = -1
			reader.LazyQuotes = true
			record, err := reader.Read()
			if err != nil {
				continue
			}
			counts[len(record)]++
			total++
		}
		if total == 0 {
			continue
		}
		// 众数字段数及其占比
		modeCount, modeFreq := 0, 0
		for count, freq := range counts {
			if freq > modeFreq {
				modeCount, modeFreq = count, freq
			}
		}
		if modeCount < 2 {
			continue
		}
		consistency := float64(modeFreq) / float64(total)
		score := consistency * float64(modeCount)
		if score > bestScore {
			bestScore = score
			bestDelim = cand
		}
	}

	if bestDelim == 0 {
		// 嗅探不确定时按字符频率投票兜底
		sample := strings.Join(lines, "\n")
		voteDelim := rune(0)
		voteCount := 0
		for _, cand := range candidates {
			if c := strings.Count(sample, string(cand)); c > voteCount {
				voteCount = c
				voteDelim = cand
			}
		}
		if voteDelim == 0 {
			return 0, "", fmt.Errorf("%w: 样本中没有任何候选分隔符", ErrDelimiterDetection)
		}
		return voteDelim, "分隔符嗅探不确定，按字符频率选择", nil
	}
	return bestDelim, "", nil
}

// sampleLines 取前 n 个非空行
func sampleLines(text string, n int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimSuffix(line, "\r"))
		if len(lines) >= n {
			break
		}
	}
	return lines
}

// detectHeader 判断首行是否为表头，并返回最终列名
// 启发式: 首行全部非空且无重复，且首行不是数字而后续行是数字时判定为表头
func detectHeader(rows [][]string) ([]string, bool) {
	first := rows[0]

	isHeader := true
	seen := make(map[string]bool)
	for _, field := range first {
		trimmed := strings.TrimSpace(field)
		if trimmed == "" || seen[trimmed] {
			isHeader = false
			break
		}
		seen[trimmed] = true
	}

	if isHeader && len(rows) > 1 {
		// 首行有数字字段而后续对应字段也是数字，说明首行更像数据行
		for i, field := range first {
			if !isNumericToken(field) {
				continue
			}
			numericBelow := 0
			checked := 0
			for _, row := range rows[1:] {
				if i >= len(row) {
					continue
				}
				checked++
				if isNumericToken(row[i]) {
					numericBelow++
				}
			}
			if checked > 0 && numericBelow == checked {
				isHeader = false
				break
			}
		}
	}

	if isHeader {
		header := make([]string, len(first))
		for i, field := range first {
			header[i] = strings.TrimSpace(field)
		}
		return header, true
	}

	header := make([]string, len(first))
	for i := range first {
		header[i] = fmt.Sprintf("column_%d", i+1)
	}
	return header, false
}

func isNumericToken(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	_, err := strconv.ParseFloat(trimmed, 64)
	return err == nil
}

// parseJSON 解析 JSON 文件，支持对象数组和列数组两种布局
func (p *Parser) parseJSON(path string, limit int) (*models.ParseResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}

	text, encodingName, err := decodeBytes(raw)
	if err != nil {
		return nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()

	var root interface{}
	if err := decoder.Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: JSON 解析失败: %v", ErrCorruptedFile, err)
	}

	result := &models.ParseResult{Encoding: encodingName, HasHeader: true}

	switch v := root.(type) {
	case []interface{}:
		table, err := tableFromObjectList(v, limit)
		if err != nil {
			return nil, err
		}
		result.Table = table
	case map[string]interface{}:
		table, err := tableFromColumnMap(v, limit)
		if err != nil {
			return nil, err
		}
		result.Table = table
	default:
		return nil, fmt.Errorf("%w: JSON 根节点必须是数组或对象", ErrCorruptedFile)
	}
	return result, nil
}

// parseJSONL 解析每行一个 JSON 对象的文件
func (p *Parser) parseJSONL(path string, limit int) (*models.ParseResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}

	text, encodingName, err := decodeBytes(raw)
	if err != nil {
		return nil, err
	}

	var objects []interface{}
	for i, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(line))
		decoder.UseNumber()
		var obj map[string]interface{}
		if err := decoder.Decode(&obj); err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行 JSON 解析失败: %v", ErrCorruptedFile, i+1, err)
		}
		objects = append(objects, obj)
		if limit > 0 && len(objects) >= limit {
			break
		}
	}

	table, err := tableFromObjectList(objects, limit)
	if err != nil {
		return nil, err
	}
	return &models.ParseResult{Table: table, Encoding: encodingName, HasHeader: true}, nil
}

// tableFromObjectList 对象数组转表，列顺序按首次出现顺序
func tableFromObjectList(items []interface{}, limit int) (*models.Table, error) {
	var columns []string
	seen := make(map[string]bool)
	var rows []map[string]interface{}

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: 第 %d 个元素不是对象", ErrCorruptedFile, i+1)
		}
		// 保持键的确定性顺序
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
		rows = append(rows, obj)
		if limit > 0 && len(rows) >= limit {
			break
		}
	}

	table := models.NewTable(columns)
	for _, obj := range rows {
		row := make([]models.CellValue, len(columns))
		for i, col := range columns {
			row[i] = cellFromJSON(obj[col])
		}
		table.AppendRow(row)
	}
	return table, nil
}

// tableFromColumnMap 列数组布局转表: {"col": [v1, v2, ...], ...}
func tableFromColumnMap(obj map[string]interface{}, limit int) (*models.Table, error) {
	columns := make([]string, 0, len(obj))
	for k := range obj {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	maxLen := 0
	colValues := make(map[string][]interface{}, len(obj))
	for _, col := range columns {
		arr, ok := obj[col].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: 列 %s 的值不是数组", ErrCorruptedFile, col)
		}
		colValues[col] = arr
		if len(arr) > maxLen {
			maxLen = len(arr)
		}
	}
	if limit > 0 && maxLen > limit {
		maxLen = limit
	}

	table := models.NewTable(columns)
	for i := 0; i < maxLen; i++ {
		row := make([]models.CellValue, len(columns))
		for j, col := range columns {
			arr := colValues[col]
			if i < len(arr) {
				row[j] = cellFromJSON(arr[i])
			} else {
				row[j] = models.NullCell()
			}
		}
		table.AppendRow(row)
	}
	return table, nil
}

// cellFromJSON JSON 值转单元格，json.Number 优先转整数
func cellFromJSON(v interface{}) models.CellValue {
	switch val := v.(type) {
	case nil:
		return models.NullCell()
	case bool:
		return models.BoolCell(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return models.IntCell(i)
		}
		if f, err := val.Float64(); err == nil {
			return models.FloatCell(f)
		}
		return models.StringCell(val.String())
	case string:
		return parseRawCell(val)
	default:
		// 嵌套对象/数组序列化为字符串保存
		encoded, err := json.Marshal(val)
		if err != nil {
			return models.NullCell()
		}
		return models.StringCell(string(encoded))
	}
}

// ---------- XLSX ----------

// xlsx 工作表 XML 结构
type xlsxWorksheet struct {
	SheetData struct {
		Rows []xlsxRow `xml:"row"`
	} `xml:"sheetData"`
}

type xlsxRow struct {
	Cells []xlsxCell `xml:"c"`
}

type xlsxCell struct {
	Ref  string `xml:"r,attr"`
	Type string `xml:"t,attr"`
	V    string `xml:"v"`
	IS   struct {
		T string `xml:"t"`
	} `xml:"is"`
}

type xlsxSharedStrings struct {
	Items []struct {
		T string `xml:"t"`
	} `xml:"si"`
}

type xlsxWorkbook struct {
	Sheets struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
		} `xml:"sheet"`
	} `xml:"sheets"`
}

// ListSheets 枚举 XLSX 文件的工作表名
func (p *Parser) ListSheets(path string) ([]string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法打开 XLSX: %v", ErrCorruptedFile, err)
	}
	defer archive.Close()
	return workbookSheetNames(&archive.Reader), nil
}

// ParseSheet 解析 XLSX 文件中指定名称的工作表，名称为空时取第一个
func (p *Parser) ParseSheet(path, sheetName string) (*models.ParseResult, error) {
	result, err := p.parseXLSX(path, sheetName, 0)
	if err != nil {
		return nil, err
	}
	result.Format = "xlsx"
	result.RowCount = result.Table.RowCount()
	result.ColCount = result.Table.ColumnCount()
	return result, nil
}

// parseXLSX 解析 XLSX 工作表，wantSheet 为空时取第一个
// 直接读取 zip 内的工作表 XML，不引入电子表格库
func (p *Parser) parseXLSX(path, wantSheet string, limit int) (*models.ParseResult, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: 无法打开 XLSX: %v", ErrCorruptedFile, err)
	}
	defer archive.Close()

	sharedStrings, err := readSharedStrings(&archive.Reader)
	if err != nil {
		return nil, err
	}

	names := workbookSheetNames(&archive.Reader)
	sheetIdx := 0
	sheetName := ""
	if len(names) > 0 {
		sheetName = names[0]
	}
	if wantSheet != "" {
		sheetIdx = -1
		for i, name := range names {
			if name == wantSheet {
				sheetIdx = i
				sheetName = name
				break
			}
		}
		if sheetIdx < 0 {
			return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, wantSheet)
		}
	}

	// 工作表文件按 workbook.xml 中的声明顺序对应 sheetN.xml
	target := fmt.Sprintf("xl/worksheets/sheet%d.xml", sheetIdx+1)
	var sheetFile *zip.File
	for _, f := range archive.File {
		if f.Name == target {
			sheetFile = f
			break
		}
	}
	if sheetFile == nil {
		return nil, fmt.Errorf("%w: XLSX 中没有工作表", ErrCorruptedFile)
	}

	rc, err := sheetFile.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedFile, err)
	}
	defer rc.Close()

	var sheet xlsxWorksheet
	if err := xml.NewDecoder(rc).Decode(&sheet); err != nil {
		return nil, fmt.Errorf("%w: 工作表解析失败: %v", ErrCorruptedFile, err)
	}

	var rawRows [][]string
	for _, row := range sheet.SheetData.Rows {
		cells := make(map[int]string)
		maxCol := -1
		for _, cell := range row.Cells {
			col := columnIndexFromRef(cell.Ref)
			if col < 0 {
				col = maxCol + 1
			}
			if col > maxCol {
				maxCol = col
			}
			cells[col] = resolveXLSXCell(cell, sharedStrings)
		}
		record := make([]string, maxCol+1)
		for col, val := range cells {
			record[col] = val
		}
		rawRows = append(rawRows, record)
		if limit > 0 && len(rawRows) > limit+1 {
			break
		}
	}

	if len(rawRows) == 0 {
		return nil, ErrEmptyFile
	}

	// 补齐列数不一致的行
	maxCols := 0
	for _, row := range rawRows {
		if len(row) > maxCols {
			maxCols = len(row)
		}
	}
	for i, row := range rawRows {
		for len(row) < maxCols {
			row = append(row, "")
		}
		rawRows[i] = row
	}

	header, hasHeader := detectHeader(rawRows)
	table := models.NewTable(header)
	dataRows := rawRows
	if hasHeader {
		dataRows = rawRows[1:]
	}
	if limit > 0 && len(dataRows) > limit {
		dataRows = dataRows[:limit]
	}
	for _, record := range dataRows {
		row := make([]models.CellValue, len(record))
		for i, field := range record {
			row[i] = parseRawCell(field)
		}
		table.AppendRow(row)
	}

	return &models.ParseResult{
		Table:     table,
		Encoding:  "utf-8",
		HasHeader: hasHeader,
		SheetName: sheetName,
	}, nil
}

// resolveXLSXCell 根据单元格类型解出取值
func resolveXLSXCell(cell xlsxCell, sharedStrings []string) string {
	switch cell.Type {
	case "s":
		idx, err := strconv.Atoi(cell.V)
		if err != nil || idx < 0 || idx >= len(sharedStrings) {
			return ""
		}
		return sharedStrings[idx]
	case "inlineStr":
		return cell.IS.T
	case "b":
		if cell.V == "1" {
			return "true"
		}
		return "false"
	default:
		return cell.V
	}
}

// readSharedStrings 读取共享字符串表
func readSharedStrings(archive *zip.Reader) ([]string, error) {
	for _, f := range archive.File {
		if f.Name != "xl/sharedStrings.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptedFile, err)
		}
		defer rc.Close()

		var shared xlsxSharedStrings
		if err := xml.NewDecoder(rc).Decode(&shared); err != nil {
			return nil, fmt.Errorf("%w: 共享字符串解析失败: %v", ErrCorruptedFile, err)
		}
		strs := make([]string, len(shared.Items))
		for i, item := range shared.Items {
			strs[i] = item.T
		}
		return strs, nil
	}
	return nil, nil
}

// workbookSheetNames 从 workbook.xml 按声明顺序读取工作表名
func workbookSheetNames(archive *zip.Reader) []string {
	for _, f := range archive.File {
		if f.Name != "xl/workbook.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()

		var wb xlsxWorkbook
		if err := xml.NewDecoder(rc).Decode(&wb); err != nil {
			return nil
		}
		names := make([]string, 0, len(wb.Sheets.Sheets))
		for _, s := range wb.Sheets.Sheets {
			names = append(names, s.Name)
		}
		return names
	}
	return nil
}

// columnIndexFromRef 从 A1 形式的单元格引用解析列下标（0-based）
func columnIndexFromRef(ref string) int {
	if ref == "" {
		return -1
	}
	col := 0
	found := false
	for _, r := range ref {
		if r >= 'A' && r <= 'Z' {
			col = col*26 + int(r-'A') + 1
			found = true
		} else {
			break
		}
	}
	if !found {
		return -1
	}
	return col - 1
}
