package sqlinline

const QPing = `--sql 2a1122b9-2364-452e-b1f9-2a32532d0657
select 1;
`

const QStatsSummary = `--sql 0f0557a2-1731-4fc6-8cbe-8540b1d2b6df
select
  (select count(*) from pools where not distributed and not ended_early and now() >= start_time and now() < end_time) as active_pools,
  (select count(*) from pools where distributed) as distributed_pools,
  (select coalesce(sum(amount), 0) from donations) as donated_total,
  (select coalesce(sum(amount), 0) from donations where created_at >= now() - interval '24 hours') as donated_last24,
  (select coalesce(sum(amount), 0) from allocations) as allocated_total,
  (select count(*) from proposals where status in ('pending', 'scored')) as proposals_open,
  (select count(*) from proposals where status = 'executed') as proposals_executed,
  (select count(*) from proposals where status = 'failed') as proposals_failed;
`
